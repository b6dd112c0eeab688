package handler

import (
	"net/http"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
)

const professorPapersPath = "/secure/professor/papers"

func (h *Handler) handleProfessorDashboard(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	h.render(w, r, http.StatusOK, "review_dashboard.html", DashboardPageData{
		PageData: h.page(w, r, "Reviewer dashboard"),
		Stats:    h.reviews.Stats(actor),
		Statuses: domain.PaperStatuses,
		Queue:    h.reviews.Queue(actor),
	})
}

func (h *Handler) handleProfessorPapers(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "papers.html", PapersPageData{
		PageData: h.page(w, r, "Assigned papers"),
		Items:    h.reviews.Queue(auth.ActorFromContext(r.Context())),
		Action:   professorPapersPath,
	})
}

func (h *Handler) handleProfessorStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, professorPapersPath)
}
