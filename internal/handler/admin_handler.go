package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/service"
)

const (
	adminUsersPath      = "/secure/admin/users"
	adminProfessorsPath = "/secure/admin/professors"
	adminPapersPath     = "/secure/admin/papers"
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DashboardPageData contains the console overview.
type DashboardPageData struct {
	PageData
	Stats      service.Stats
	Statuses   []domain.PaperStatus
	Users      int
	Professors int
	Queue      []service.ReviewItem
}

// UsersPageData contains users management page data.
type UsersPageData struct {
	PageData
	Users []domain.User
}

// ProfessorsPageData contains the professor accounts page data.
type ProfessorsPageData struct {
	PageData
	Professors []domain.User
	Form       service.CreateProfessorInput
}

// PapersPageData contains a review queue.
type PapersPageData struct {
	PageData
	Items      []service.ReviewItem
	Professors []domain.User
	Action     string
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	h.render(w, r, http.StatusOK, "dashboard.html", DashboardPageData{
		PageData:   h.page(w, r, "Editorial office"),
		Stats:      h.reviews.Stats(actor),
		Statuses:   domain.PaperStatuses,
		Users:      len(h.accounts.Users()),
		Professors: len(h.accounts.Professors()),
	})
}

// =============================================================================
// User Management Handlers
// =============================================================================

func (h *Handler) handleUserList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "users.html", UsersPageData{
		PageData: h.page(w, r, "Users"),
		Users:    h.accounts.Users(),
	})
}

func (h *Handler) handleBan(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Ban(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.redirect(w, r, adminUsersPath, failed(h.failure(r, err)))
		return
	}
	h.redirect(w, r, adminUsersPath, success(user.Name+" has been banned."))
}

func (h *Handler) handleUnban(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Unban(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.redirect(w, r, adminUsersPath, failed(h.failure(r, err)))
		return
	}
	h.redirect(w, r, adminUsersPath, success(user.Name+" has been reinstated."))
}

func (h *Handler) professorsPage(w http.ResponseWriter, r *http.Request, form service.CreateProfessorInput) ProfessorsPageData {
	return ProfessorsPageData{
		PageData:   h.page(w, r, "Professors"),
		Professors: h.accounts.Professors(),
		Form:       form,
	}
}

func (h *Handler) handleProfessorList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "professors.html", h.professorsPage(w, r, service.CreateProfessorInput{}))
}

func (h *Handler) handleCreateProfessor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := service.CreateProfessorInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	prof, err := h.accounts.CreateProfessor(r.Context(), auth.ActorFromContext(r.Context()), input)
	if err != nil {
		input.Password = ""
		data := h.professorsPage(w, r, input)
		data.Error = h.failure(r, err)
		h.render(w, r, statusFor(err), "professors.html", data)
		return
	}
	h.redirect(w, r, adminProfessorsPath, success(prof.Name+" can now sign in as a reviewer."))
}

// =============================================================================
// Paper Handlers
// =============================================================================

func (h *Handler) handleAdminPapers(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	h.render(w, r, http.StatusOK, "papers.html", PapersPageData{
		PageData:   h.page(w, r, "Papers"),
		Items:      h.reviews.Queue(actor),
		Professors: h.reviews.Professors(),
		Action:     adminPapersPath,
	})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	paper, err := h.reviews.Assign(r.Context(), auth.ActorFromContext(r.Context()), service.AssignInput{
		PaperID:     chi.URLParam(r, "id"),
		ProfessorID: r.PostFormValue("professor_id"),
	})
	if err != nil {
		h.redirect(w, r, adminPapersPath, failed(h.failure(r, err)))
		return
	}
	h.redirect(w, r, adminPapersPath, success("\""+paper.Title+"\" is now under review."))
}

func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, adminPapersPath)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, back string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	paper, err := h.reviews.UpdateStatus(r.Context(), auth.ActorFromContext(r.Context()), service.UpdateStatusInput{
		PaperID:  chi.URLParam(r, "id"),
		Status:   r.PostFormValue("status"),
		Comments: r.PostFormValue("comments"),
	})
	if err != nil {
		h.redirect(w, r, back, failed(h.failure(r, err)))
		return
	}
	h.redirect(w, r, back, success("\""+paper.Title+"\" is now "+paper.Status.Label()+"."))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.export.WritePapers(auth.ActorFromContext(r.Context()), &buf)
	if err != nil {
		h.redirect(w, r, adminPapersPath, failed(h.failure(r, err)))
		return
	}

	hlog.FromRequest(r).Info().Int("papers", n).Msg("papers exported")

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+service.ExportFilename(h.now())+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
