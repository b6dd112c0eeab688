package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
)

// ReviewService handles paper assignment and review decisions.
type ReviewService struct {
	store  PaperStore
	logger zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(st PaperStore, logger zerolog.Logger) *ReviewService {
	return &ReviewService{
		store:  st,
		logger: logger.With().Str("service", "review").Logger(),
	}
}

// AssignInput contains the data needed to assign a reviewer.
type AssignInput struct {
	PaperID     string `form:"paper_id" validate:"required"`
	ProfessorID string `form:"professor_id" validate:"required"`
}

// Assign gives a paper to a professor and moves it to UNDER_REVIEW.
func (s *ReviewService) Assign(ctx context.Context, actor *domain.User, input AssignInput) (*domain.Paper, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	paper, err := s.store.AssignPaperBy(ctx, actor.ID, input.PaperID, input.ProfessorID)
	if err = persisted(s.logger, "assign_paper", err); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("paper_id", paper.ID).
		Str("professor_id", input.ProfessorID).
		Str("by", actor.ID).
		Msg("paper assigned")

	return &paper, nil
}

// UpdateStatusInput contains a review decision.
type UpdateStatusInput struct {
	PaperID  string `form:"paper_id" validate:"required"`
	Status   string `form:"status" validate:"required,oneof=SUBMITTED UNDER_REVIEW REVISION_REQUIRED ACCEPTED REJECTED"`
	Comments string `form:"comments" validate:"max=5000"`
}

// UpdateStatus records a review decision. Admins may decide on any paper,
// professors only on papers assigned to them.
func (s *ReviewService) UpdateStatus(ctx context.Context, actor *domain.User, input UpdateStatusInput) (*domain.Paper, error) {
	if actor == nil {
		return nil, domain.ErrNoActor
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, ok := s.store.PaperByID(input.PaperID)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrPaperNotFound, "", input.PaperID)
	}
	if !lifecycle.CanReview(actor, current) {
		s.logger.Warn().
			Str("paper_id", current.ID).
			Str("user_id", actor.ID).
			Str("role", string(actor.Role)).
			Msg("review decision refused")
		return nil, domain.NewDomainError(domain.ErrForbidden, "not a reviewer of this paper", current.ID)
	}

	paper, err := s.store.UpdatePaperStatusBy(ctx, actor.ID, input.PaperID, domain.PaperStatus(input.Status), input.Comments)
	if err = persisted(s.logger, "update_paper_status", err); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("paper_id", paper.ID).
		Str("from", string(current.Status)).
		Str("to", string(paper.Status)).
		Str("by", actor.ID).
		Msg("paper status updated")

	return &paper, nil
}

// ReviewItem is a paper with the decisions its reviewer can take next.
type ReviewItem struct {
	Paper     domain.Paper
	Professor *domain.User
	Next      []domain.PaperStatus
}

// Queue returns the papers actor may review: all papers for admins, the
// assigned ones for professors.
func (s *ReviewService) Queue(actor *domain.User) []ReviewItem {
	if actor == nil {
		return nil
	}

	var papers []domain.Paper
	switch actor.Role {
	case domain.RoleAdmin:
		papers = s.store.Papers()
	case domain.RoleProfessor:
		papers = s.store.PapersByProfessor(actor.ID)
	default:
		return nil
	}

	items := make([]ReviewItem, 0, len(papers))
	for _, p := range papers {
		item := ReviewItem{Paper: p, Next: lifecycle.Next(p.Status)}
		if p.IsAssigned() {
			if prof, ok := s.store.UserByID(p.AssignedProfessorID); ok {
				item.Professor = &prof
			}
		}
		items = append(items, item)
	}
	return items
}

// Professors returns the accounts papers can be assigned to. Banned
// professors are left out.
func (s *ReviewService) Professors() []domain.User {
	var out []domain.User
	for _, p := range s.store.Professors() {
		if !p.IsBanned() {
			out = append(out, p)
		}
	}
	return out
}

// Stats summarises the paper pipeline for dashboards.
type Stats struct {
	Total      int
	Unassigned int
	ByStatus   map[domain.PaperStatus]int
}

// Stats counts the papers actor can see in its queue.
func (s *ReviewService) Stats(actor *domain.User) Stats {
	st := Stats{ByStatus: make(map[domain.PaperStatus]int, len(domain.PaperStatuses))}
	for _, status := range domain.PaperStatuses {
		st.ByStatus[status] = 0
	}
	for _, item := range s.Queue(actor) {
		st.Total++
		st.ByStatus[item.Paper.Status]++
		if !item.Paper.IsAssigned() {
			st.Unassigned++
		}
	}
	return st
}
