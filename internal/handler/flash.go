package handler

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookieName = "jmrh_flash"

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

func success(msg string) Flash { return Flash{Kind: FlashSuccess, Message: msg} }
func failed(msg string) Flash  { return Flash{Kind: FlashError, Message: msg} }

func (h *Handler) setFlash(w http.ResponseWriter, f Flash) {
	if f.Message == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(f.Kind + ":" + f.Message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns the pending flash, if any, and clears it.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || (kind != FlashSuccess && kind != FlashError) {
		return nil
	}
	return &Flash{Kind: kind, Message: msg}
}
