package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/storage"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// PaperStore is the part of the session store used for papers.
type PaperStore interface {
	Submit(ctx context.Context, authorID string, sub store.Submission) (domain.Paper, error)
	AssignPaperBy(ctx context.Context, actorID, paperID, professorID string) (domain.Paper, error)
	UpdatePaperStatusBy(ctx context.Context, actorID, paperID string, status domain.PaperStatus, comments string) (domain.Paper, error)
	PaperByID(id string) (domain.Paper, bool)
	Papers() []domain.Paper
	PapersByAuthor(authorID string) []domain.Paper
	PapersByProfessor(professorID string) []domain.Paper
	UserByID(id string) (domain.User, bool)
	Professors() []domain.User
	Mode() lifecycle.Mode
}

// FileResolver turns manuscript paths into browser URLs.
type FileResolver interface {
	ResolveURL(ctx context.Context, bucket, path string) string
	UploadURL(ctx context.Context, userID, filename string) (*storage.Upload, error)
}

// SubmissionService handles manuscript submission and status tracking.
type SubmissionService struct {
	store  PaperStore
	files  FileResolver
	logger zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
// files may be nil when object storage is not configured.
func NewSubmissionService(st PaperStore, files FileResolver, logger zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		store:  st,
		files:  files,
		logger: logger.With().Str("service", "submission").Logger(),
	}
}

// SubmitInput contains the data needed to submit a paper.
type SubmitInput struct {
	Title      string `form:"title" validate:"required,max=300"`
	Abstract   string `form:"abstract" validate:"required,max=5000"`
	Discipline string `form:"discipline" validate:"required,max=120"`

	// ManuscriptPath is the key returned by UploadURL.
	ManuscriptPath string `form:"manuscript_path" validate:"max=1024"`
}

// Submit creates a SUBMITTED paper authored by actor.
func (s *SubmissionService) Submit(ctx context.Context, actor *domain.User, input SubmitInput) (*domain.Paper, error) {
	if actor == nil {
		return nil, domain.ErrNoActor
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	// Full URLs exist only on legacy records; new submissions must reference
	// an upload of their own.
	if path := input.ManuscriptPath; path != "" && (storage.IsURL(path) || !storage.OwnedBy(path, actor.ID)) {
		s.logger.Warn().Str("user_id", actor.ID).Str("path", path).Msg("submission references a foreign manuscript")
		return nil, ErrForeignManuscript
	}

	paper, err := s.store.Submit(ctx, actor.ID, store.Submission{
		Title:          input.Title,
		Abstract:       input.Abstract,
		Discipline:     input.Discipline,
		ManuscriptPath: input.ManuscriptPath,
	})
	if err = persisted(s.logger, "submit_paper", err); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("paper_id", paper.ID).
		Str("author_id", actor.ID).
		Bool("manuscript", paper.ManuscriptPath != "").
		Msg("paper submitted")

	return &paper, nil
}

// UploadURL issues a presigned PUT for a new manuscript of actor.
func (s *SubmissionService) UploadURL(ctx context.Context, actor *domain.User, filename string) (*storage.Upload, error) {
	if actor == nil {
		return nil, domain.ErrNoActor
	}
	if actor.Role != domain.RoleUser {
		return nil, domain.ErrNotAuthor
	}
	if s.files == nil {
		return nil, storage.ErrStorageDisabled
	}
	return s.files.UploadURL(ctx, actor.ID, filename)
}

// MyPapers returns the papers actor submitted, newest first.
func (s *SubmissionService) MyPapers(actor *domain.User) []domain.Paper {
	if actor == nil {
		return nil
	}
	papers := s.store.PapersByAuthor(actor.ID)
	for i, j := 0, len(papers)-1; i < j; i, j = i+1, j-1 {
		papers[i], papers[j] = papers[j], papers[i]
	}
	return papers
}

// Published returns the accepted papers shown in the public archive.
func (s *SubmissionService) Published() []domain.Paper {
	var out []domain.Paper
	for _, p := range s.store.Papers() {
		if p.Status == domain.PaperAccepted {
			out = append(out, p)
		}
	}
	return out
}

// Paper returns paper id for status tracking. Only the author, an admin or
// the assigned professor may see it; everyone else gets ErrPaperNotFound.
func (s *SubmissionService) Paper(actor *domain.User, id string) (*domain.Paper, error) {
	paper, ok := s.store.PaperByID(id)
	if !ok || !canView(actor, paper) {
		return nil, domain.NewDomainError(domain.ErrPaperNotFound, "", id)
	}
	return &paper, nil
}

// ManuscriptURL returns a URL for the manuscript of paper id.
func (s *SubmissionService) ManuscriptURL(ctx context.Context, actor *domain.User, id string) (string, error) {
	paper, err := s.Paper(actor, id)
	if err != nil {
		return "", err
	}
	if paper.ManuscriptPath == "" {
		return "", ErrNoManuscript
	}
	if s.files == nil {
		if storage.IsURL(paper.ManuscriptPath) {
			return paper.ManuscriptPath, nil
		}
		return "", ErrManuscriptUnavailable
	}

	url := s.files.ResolveURL(ctx, "", paper.ManuscriptPath)
	if url == "" {
		return "", fmt.Errorf("%w: paper %s", ErrManuscriptUnavailable, id)
	}
	return url, nil
}

func canView(actor *domain.User, p domain.Paper) bool {
	if actor == nil {
		return false
	}
	return actor.ID == p.AuthorID || lifecycle.CanReview(actor, p)
}
