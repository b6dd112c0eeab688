package handler

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/access"
	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/service"
)

// portal describes a role-restricted sign-in page.
type portal struct {
	Name string
	Path string
	Role domain.Role
}

var (
	portalAdmin     = portal{Name: "Editorial office", Path: access.AdminLoginPath, Role: domain.RoleAdmin}
	portalProfessor = portal{Name: "Reviewer", Path: access.ProfessorLoginPath, Role: domain.RoleProfessor}
)

// AuthPageData contains the sign-in and registration page data.
type AuthPageData struct {
	PageData
	From   string
	Email  string
	Name   string
	Portal *portal
}

func (h *Handler) authPage(w http.ResponseWriter, r *http.Request, p *portal) AuthPageData {
	title := "Sign in"
	if p != nil {
		title = p.Name + " sign in"
	}
	return AuthPageData{
		PageData: h.page(w, r, title),
		From:     access.SafeReturn(r.FormValue(access.FromParam)),
		Portal:   p,
	}
}

func (h *Handler) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if actor := auth.ActorFromContext(r.Context()); actor != nil && !actor.IsBanned() {
		http.Redirect(w, r, access.Home(actor.Role), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "auth.html", h.authPage(w, r, nil))
}

// handleLoginAlias keeps old /login links working.
func (h *Handler) handleLoginAlias(w http.ResponseWriter, r *http.Request) {
	location := access.AuthPath
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, nil)
}

func (h *Handler) handlePortalLoginPage(p portal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if actor := auth.ActorFromContext(r.Context()); actor != nil && actor.Role == p.Role && !actor.IsBanned() {
			http.Redirect(w, r, access.Home(actor.Role), http.StatusFound)
			return
		}
		h.render(w, r, http.StatusOK, "portal_login.html", h.authPage(w, r, &p))
	}
}

func (h *Handler) handlePortalLogin(p portal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.login(w, r, &p)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, p *portal) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := service.LoginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	page := "auth.html"
	if p != nil {
		input.Portal = p.Role
		page = "portal_login.html"
	}

	user, err := h.accounts.Login(r.Context(), input)
	if err != nil {
		data := h.authPage(w, r, p)
		data.Email = input.Email
		data.Error = h.failure(r, err)
		h.render(w, r, statusFor(err), page, data)
		return
	}

	token, expires, err := h.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user_id", user.ID).Msg("failed to issue session")
		data := h.authPage(w, r, p)
		data.Error = "Something went wrong. Please try again."
		h.render(w, r, http.StatusInternalServerError, page, data)
		return
	}
	auth.SetSessionCookie(w, token, expires, h.secure)

	location := access.SafeReturn(r.PostFormValue(access.FromParam))
	if location == "" {
		location = access.Home(user.Role)
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := service.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if _, err := h.accounts.Register(r.Context(), input); err != nil {
		data := h.authPage(w, r, nil)
		data.Name = input.Name
		data.Email = input.Email
		data.Error = h.failure(r, err)
		h.render(w, r, statusFor(err), "auth.html", data)
		return
	}

	location := access.AuthPath
	if from := access.SafeReturn(r.PostFormValue(access.FromParam)); from != "" {
		location += "?" + url.Values{access.FromParam: {from}}.Encode()
	}
	h.redirect(w, r, location, success("Account created. Please sign in."))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	http.Redirect(w, r, access.HomePath, http.StatusSeeOther)
}
