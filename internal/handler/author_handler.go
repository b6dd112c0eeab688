package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/service"
	"github.com/prn-tf/jmrh-portal/internal/storage"
)

// SubmitPageData contains the submission form and the author's papers.
type SubmitPageData struct {
	PageData
	Form   service.SubmitInput
	Papers []domain.Paper
}

// PaperPageData contains the status tracking page data.
type PaperPageData struct {
	PageData
	Paper domain.Paper
}

// AccountPageData contains the account page data.
type AccountPageData struct {
	PageData
	User domain.User
}

func (h *Handler) submitPage(w http.ResponseWriter, r *http.Request, form service.SubmitInput) SubmitPageData {
	actor := auth.ActorFromContext(r.Context())
	return SubmitPageData{
		PageData: h.page(w, r, "Submit a paper"),
		Form:     form,
		Papers:   h.submissions.MyPapers(actor),
	}
}

func (h *Handler) handleSubmitPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "submit.html", h.submitPage(w, r, service.SubmitInput{}))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := service.SubmitInput{
		Title:          r.PostFormValue("title"),
		Abstract:       r.PostFormValue("abstract"),
		Discipline:     r.PostFormValue("discipline"),
		ManuscriptPath: r.PostFormValue("manuscript_path"),
	}

	paper, err := h.submissions.Submit(r.Context(), auth.ActorFromContext(r.Context()), input)
	if err != nil {
		data := h.submitPage(w, r, input)
		data.Error = h.failure(r, err)
		h.render(w, r, statusFor(err), "submit.html", data)
		return
	}

	h.redirect(w, r, "/submit-paper/"+paper.ID, success("Your paper has been submitted."))
}

// uploadRequest is the body of an upload URL request.
type uploadRequest struct {
	Filename string `json:"filename"`
}

// uploadResponse tells the browser where to PUT the manuscript.
type uploadResponse struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil || req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "filename is required"})
		return
	}

	upload, err := h.submissions.UploadURL(r.Context(), auth.ActorFromContext(r.Context()), req.Filename)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, storage.ErrStorageDisabled) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{Error: h.failure(r, err)})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Key:         upload.Key,
		URL:         upload.URL,
		ContentType: upload.ContentType,
		ExpiresAt:   upload.ExpiresAt,
	})
}

func (h *Handler) handlePaperStatus(w http.ResponseWriter, r *http.Request) {
	paper, err := h.submissions.Paper(auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.redirect(w, r, "/submit-paper", failed(h.failure(r, err)))
		return
	}

	h.render(w, r, http.StatusOK, "paper.html", PaperPageData{
		PageData: h.page(w, r, paper.Title),
		Paper:    *paper,
	})
}

func (h *Handler) handleManuscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	url, err := h.submissions.ManuscriptURL(r.Context(), auth.ActorFromContext(r.Context()), id)
	if err != nil {
		back := "/submit-paper/" + id
		if errors.Is(err, domain.ErrPaperNotFound) {
			back = "/submit-paper"
		}
		h.redirect(w, r, back, failed(h.failure(r, err)))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) accountPage(w http.ResponseWriter, r *http.Request) AccountPageData {
	data := AccountPageData{PageData: h.page(w, r, "Your account")}
	if data.Actor != nil {
		data.User = *data.Actor
	}
	return data
}

func (h *Handler) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "account.html", h.accountPage(w, r))
}

// handleAccount updates the profile, or the password when action=password.
func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	actor := auth.ActorFromContext(r.Context())

	var (
		err  error
		done string
	)
	switch r.PostFormValue("action") {
	case "password":
		err = h.accounts.ChangePassword(r.Context(), actor, service.ChangePasswordInput{
			OldPassword: r.PostFormValue("old_password"),
			NewPassword: r.PostFormValue("new_password"),
		})
		done = "Your password has been changed."
	default:
		_, err = h.accounts.UpdateProfile(r.Context(), actor, service.UpdateProfileInput{
			Name: r.PostFormValue("name"),
		})
		done = "Your profile has been updated."
	}

	if err != nil {
		data := h.accountPage(w, r)
		data.Error = h.failure(r, err)
		h.render(w, r, statusFor(err), "account.html", data)
		return
	}
	h.redirect(w, r, "/account", success(done))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
