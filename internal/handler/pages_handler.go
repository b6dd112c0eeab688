package handler

import (
	"net/http"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// HomePageData contains the landing page data.
type HomePageData struct {
	PageData
	Recent []domain.Paper
}

// BoardPageData contains the editorial board page data.
type BoardPageData struct {
	PageData
	Professors []domain.User
}

// ArchivePageData contains the archive page data.
type ArchivePageData struct {
	PageData
	Papers []domain.Paper
}

const recentPapers = 5

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	published := h.submissions.Published()
	if n := len(published); n > recentPapers {
		published = published[n-recentPapers:]
	}
	h.render(w, r, http.StatusOK, "home.html", HomePageData{
		PageData: h.page(w, r, "Journal of Multidisciplinary Research Horizon"),
		Recent:   published,
	})
}

func (h *Handler) handleStatic(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, h.page(w, r, title))
	}
}

func (h *Handler) handleEditorialBoard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "board.html", BoardPageData{
		PageData:   h.page(w, r, "Editorial board"),
		Professors: h.reviews.Professors(),
	})
}

func (h *Handler) handleArchives(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "archives.html", ArchivePageData{
		PageData: h.page(w, r, "Archives"),
		Papers:   h.submissions.Published(),
	})
}
