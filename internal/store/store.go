package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/lock"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/repository"
)

var (
	// ErrPersist wraps snapshot write failures. The in-memory change that
	// triggered the write has already been applied.
	ErrPersist = errors.New("failed to persist state")

	// ErrNotReady is returned by mutations before the first Load completes.
	ErrNotReady = errors.New("store is still loading")
)

// Operation names, used for metrics and change notifications.
const (
	OpSetCurrentUser    = "set_current_user"
	OpRegisterUser      = "register_user"
	OpBanUser           = "ban_user"
	OpUnbanUser         = "unban_user"
	OpCreateProfessor   = "create_professor"
	OpCreateAdmin       = "create_admin"
	OpSetPassword       = "set_password"
	OpUpdateProfile     = "update_profile"
	OpAssignPaper       = "assign_paper"
	OpSubmitPaper       = "submit_paper"
	OpUpdatePaperStatus = "update_paper_status"
	OpAttachManuscript  = "attach_manuscript"
)

// Change describes a successful mutation.
type Change struct {
	Op      string
	At      time.Time
	User    *domain.User
	Paper   *domain.Paper
	ActorID string

	// Transition is set for paper status changes.
	Transition *lifecycle.Transition
}

// Notifier receives every Change after the store lock is released.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

// Config holds store settings.
type Config struct {
	// Name is the snapshot key in the repository.
	Name string

	// Mode selects permissive or strict lifecycle checks.
	Mode lifecycle.Mode

	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time

	// NewID returns a fresh identifier. Defaults to uuid.NewString.
	NewID func() string

	// Lock controls the snapshot write lock.
	Lock lock.Options
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Name:  "portal",
		Mode:  lifecycle.Permissive,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
		Lock:  lock.DefaultOptions,
	}
}

// Store is the persisted, concurrency-safe holder of the portal State.
type Store struct {
	repo     repository.SnapshotRepository
	locker   lock.Locker
	logger   zerolog.Logger
	config   Config
	metrics  *metrics.Metrics
	notifier Notifier

	mu    sync.RWMutex
	state State
	ready bool
}

// New creates a Store. It holds an empty state and reports not ready until
// Load succeeds.
func New(
	repo repository.SnapshotRepository,
	locker lock.Locker,
	logger zerolog.Logger,
	config Config,
	m *metrics.Metrics,
) *Store {
	def := DefaultConfig()
	if config.Name == "" {
		config.Name = def.Name
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	if config.NewID == nil {
		config.NewID = def.NewID
	}
	if config.Lock.TTL == 0 {
		config.Lock = def.Lock
	}
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}

	return &Store{
		repo:    repo,
		locker:  locker,
		logger:  logger.With().Str("component", "store").Str("snapshot", config.Name).Logger(),
		config:  config,
		metrics: m,
		state:   Empty(),
	}
}

// SetNotifier registers the receiver of change notifications.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Mode returns the configured lifecycle mode.
func (s *Store) Mode() lifecycle.Mode {
	return s.config.Mode
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the snapshot. A missing snapshot yields an empty state.
// On error the store keeps its previous state and readiness.
func (s *Store) Load(ctx context.Context) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("users", len(st.Users)).
		Int("papers", len(st.Papers)).
		Msg("state loaded")
	return nil
}

// Reload re-reads the snapshot to pick up writes from other instances.
func (s *Store) Reload(ctx context.Context) error {
	st, err := s.load(ctx)
	s.metrics.RecordReload(err)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Int("users", len(st.Users)).
		Int("papers", len(st.Papers)).
		Msg("state reloaded")
	return nil
}

// load holds the write lock across the read so a concurrent mutation cannot
// be overwritten by an older snapshot.
func (s *Store) load(ctx context.Context) (State, error) {
	s.mu.Lock()
	st, err := s.read(ctx)
	if err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	s.state = st
	s.ready = true
	s.mu.Unlock()

	s.publishCounts(st)
	return st, nil
}

func (s *Store) read(ctx context.Context) (State, error) {
	data, err := s.repo.Load(ctx, s.config.Name)
	if errors.Is(err, repository.ErrNotFound) {
		return Empty(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return st.normalize(), nil
}

// Ready reports whether the initial Load has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// =============================================================================
// Mutation plumbing
// =============================================================================

// mutate applies fn to the current state under the write lock, persists the
// result and notifies. A persistence error is returned wrapped in ErrPersist
// after the new state is already in effect.
func (s *Store) mutate(ctx context.Context, op string, fn func(st State) (State, Change, error)) (Change, error) {
	s.mu.Lock()

	if !s.ready {
		s.mu.Unlock()
		s.metrics.RecordMutation(op, ErrNotReady)
		return Change{}, ErrNotReady
	}

	next, change, err := fn(s.state)
	s.metrics.RecordMutation(op, err)
	if err != nil {
		s.mu.Unlock()
		return Change{}, err
	}

	s.state = next.normalize()
	persistErr := s.persistLocked(ctx)
	notifier := s.notifier
	s.mu.Unlock()

	s.publishCounts(next)

	change.Op = op
	change.At = s.config.Now()
	if notifier != nil {
		notifier.Notify(ctx, change)
	}

	return change, persistErr
}

// persistLocked writes the current state. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	start := time.Now()
	err = lock.WithLock(ctx, s.locker, lock.Keys.Snapshot(s.config.Name), s.config.Lock, func(ctx context.Context) error {
		return s.repo.Save(ctx, s.config.Name, data)
	})
	s.metrics.RecordPersist(time.Since(start), err)

	if err != nil {
		s.logger.Error().Err(err).Int("bytes", len(data)).Msg("failed to persist state")
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Store) publishCounts(st State) {
	if s.metrics == nil {
		return
	}
	byStatus := make(map[string]int, len(domain.PaperStatuses))
	for _, status := range domain.PaperStatuses {
		byStatus[string(status)] = 0
	}
	for _, p := range st.Papers {
		byStatus[string(p.Status)]++
	}
	s.metrics.SetCounts(len(st.Users), byStatus)
}

// flagged logs and counts a transition applied outside the lifecycle table.
func (s *Store) flagged(t lifecycle.Transition, paperID string) {
	if !t.Flagged() {
		return
	}
	s.logger.Warn().
		Str("paper_id", paperID).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("action", string(t.Action)).
		Msg("applied status change outside the review lifecycle")
	s.metrics.RecordFlaggedTransition(string(t.From), string(t.To))
}

// =============================================================================
// Session
// =============================================================================

// SetCurrentUser replaces the single-session actor. nil signs out.
func (s *Store) SetCurrentUser(ctx context.Context, u *domain.User) error {
	_, err := s.mutate(ctx, OpSetCurrentUser, func(st State) (State, Change, error) {
		c := Change{}
		if u != nil {
			actor := *u
			c.User = &actor
			c.ActorID = u.ID
		}
		return st.WithCurrentUser(u), c, nil
	})
	return err
}

// =============================================================================
// Users
// =============================================================================

// NewAccount describes an account to create.
type NewAccount struct {
	Name  string
	Email string
	Role  domain.Role

	// PasswordHash is optional; accounts without one cannot sign in over HTTP.
	PasswordHash string
}

// CreateAccount creates an ACTIVE account in a single mutation.
func (s *Store) CreateAccount(ctx context.Context, a NewAccount) (domain.User, error) {
	op := OpRegisterUser
	switch a.Role {
	case domain.RoleProfessor:
		op = OpCreateProfessor
	case domain.RoleAdmin:
		op = OpCreateAdmin
	}

	var created domain.User
	_, err := s.mutate(ctx, op, func(st State) (State, Change, error) {
		u := domain.NewUser(s.config.NewID(), strings.TrimSpace(a.Name), strings.TrimSpace(a.Email), a.Role, s.config.Now())
		u.PasswordHash = a.PasswordHash
		next, err := st.AddUser(u)
		if err != nil {
			return st, Change{}, err
		}
		created = u
		return next, Change{User: &u}, nil
	})
	if err != nil && !errors.Is(err, ErrPersist) {
		return domain.User{}, err
	}
	return created, err
}

// RegisterUser creates an ACTIVE account with role USER. It does not sign
// the new account in.
func (s *Store) RegisterUser(ctx context.Context, name, email string) (domain.User, error) {
	return s.CreateAccount(ctx, NewAccount{Name: name, Email: email, Role: domain.RoleUser})
}

// CreateProfessor creates an ACTIVE account with role PROFESSOR.
func (s *Store) CreateProfessor(ctx context.Context, name, email string) (domain.User, error) {
	return s.CreateAccount(ctx, NewAccount{Name: name, Email: email, Role: domain.RoleProfessor})
}

// CreateAdmin creates an ACTIVE account with role ADMIN.
func (s *Store) CreateAdmin(ctx context.Context, name, email string) (domain.User, error) {
	return s.CreateAccount(ctx, NewAccount{Name: name, Email: email, Role: domain.RoleAdmin})
}

func (s *Store) updateUser(ctx context.Context, op string, fn func(st State) (State, domain.User, error)) (domain.User, error) {
	var updated domain.User
	_, err := s.mutate(ctx, op, func(st State) (State, Change, error) {
		next, u, err := fn(st)
		if err != nil {
			return st, Change{}, err
		}
		updated = u
		return next, Change{User: &u}, nil
	})
	if err != nil && !errors.Is(err, ErrPersist) {
		return domain.User{}, err
	}
	return updated, err
}

// BanUser sets id to BANNED. Banning a banned user is not an error.
func (s *Store) BanUser(ctx context.Context, id string) (domain.User, error) {
	return s.updateUser(ctx, OpBanUser, func(st State) (State, domain.User, error) {
		return st.SetUserStatus(id, domain.UserBanned)
	})
}

// UnbanUser sets id to ACTIVE. Unbanning an active user is not an error.
func (s *Store) UnbanUser(ctx context.Context, id string) (domain.User, error) {
	return s.updateUser(ctx, OpUnbanUser, func(st State) (State, domain.User, error) {
		return st.SetUserStatus(id, domain.UserActive)
	})
}

// SetPassword stores a bcrypt hash for id.
func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	_, err := s.updateUser(ctx, OpSetPassword, func(st State) (State, domain.User, error) {
		return st.SetPassword(id, hash)
	})
	return err
}

// UpdateProfile changes the display name of id.
func (s *Store) UpdateProfile(ctx context.Context, id, name string) (domain.User, error) {
	return s.updateUser(ctx, OpUpdateProfile, func(st State) (State, domain.User, error) {
		return st.Rename(id, strings.TrimSpace(name))
	})
}

// =============================================================================
// Papers
// =============================================================================

func (s *Store) updatePaper(ctx context.Context, op string, actorID string, fn func(st State) (State, domain.Paper, *lifecycle.Transition, error)) (domain.Paper, error) {
	var updated domain.Paper
	_, err := s.mutate(ctx, op, func(st State) (State, Change, error) {
		next, p, t, err := fn(st)
		if err != nil {
			return st, Change{}, err
		}
		updated = p
		if t != nil {
			s.flagged(*t, p.ID)
		}
		return next, Change{Paper: &p, Transition: t, ActorID: actorID}, nil
	})
	if err != nil && !errors.Is(err, ErrPersist) {
		return domain.Paper{}, err
	}
	return updated, err
}

// SubmitPaper creates a SUBMITTED paper authored by the single-session actor.
func (s *Store) SubmitPaper(ctx context.Context, title, abstract, discipline string) (domain.Paper, error) {
	actor := s.CurrentUser()
	if actor == nil {
		s.metrics.RecordMutation(OpSubmitPaper, domain.ErrNoActor)
		return domain.Paper{}, domain.ErrNoActor
	}
	return s.SubmitPaperAs(ctx, actor.ID, title, abstract, discipline)
}

// SubmitPaperAs creates a SUBMITTED paper authored by authorID.
// The author must be an active USER.
func (s *Store) SubmitPaperAs(ctx context.Context, authorID, title, abstract, discipline string) (domain.Paper, error) {
	return s.Submit(ctx, authorID, Submission{Title: title, Abstract: abstract, Discipline: discipline})
}

// Submission is the author-supplied part of a new paper.
type Submission struct {
	Title      string
	Abstract   string
	Discipline string

	// ManuscriptPath is an uploaded object key or a full URL. Optional.
	ManuscriptPath string
}

// Submit creates a SUBMITTED paper, manuscript included, in one mutation.
func (s *Store) Submit(ctx context.Context, authorID string, sub Submission) (domain.Paper, error) {
	return s.updatePaper(ctx, OpSubmitPaper, authorID, func(st State) (State, domain.Paper, *lifecycle.Transition, error) {
		author, ok := st.UserByID(authorID)
		if !ok {
			return st, domain.Paper{}, nil, domain.NewDomainError(domain.ErrUserNotFound, "author", authorID)
		}
		p := domain.NewPaper(s.config.NewID(), author,
			strings.TrimSpace(sub.Title), strings.TrimSpace(sub.Abstract), strings.TrimSpace(sub.Discipline),
			s.config.Now())
		p.ManuscriptPath = strings.TrimSpace(sub.ManuscriptPath)
		next, err := st.AddPaper(p)
		return next, p, nil, err
	})
}

// AssignPaper assigns professorID and moves the paper to UNDER_REVIEW.
func (s *Store) AssignPaper(ctx context.Context, paperID, professorID string) (domain.Paper, error) {
	return s.AssignPaperBy(ctx, "", paperID, professorID)
}

// AssignPaperBy is AssignPaper with the acting admin recorded in the change.
func (s *Store) AssignPaperBy(ctx context.Context, actorID, paperID, professorID string) (domain.Paper, error) {
	return s.updatePaper(ctx, OpAssignPaper, actorID, func(st State) (State, domain.Paper, *lifecycle.Transition, error) {
		next, p, t, err := st.AssignPaper(paperID, professorID, s.config.Mode)
		return next, p, &t, err
	})
}

// UpdatePaperStatus sets the paper's status and revision comments.
func (s *Store) UpdatePaperStatus(ctx context.Context, paperID string, status domain.PaperStatus, comments string) (domain.Paper, error) {
	return s.UpdatePaperStatusBy(ctx, "", paperID, status, comments)
}

// UpdatePaperStatusBy is UpdatePaperStatus with the reviewer recorded in the change.
func (s *Store) UpdatePaperStatusBy(ctx context.Context, actorID, paperID string, status domain.PaperStatus, comments string) (domain.Paper, error) {
	return s.updatePaper(ctx, OpUpdatePaperStatus, actorID, func(st State) (State, domain.Paper, *lifecycle.Transition, error) {
		next, p, t, err := st.SetPaperStatus(paperID, status, strings.TrimSpace(comments), s.config.Mode)
		return next, p, &t, err
	})
}

// AttachManuscript records the storage key of an uploaded manuscript.
func (s *Store) AttachManuscript(ctx context.Context, paperID, path string) (domain.Paper, error) {
	return s.updatePaper(ctx, OpAttachManuscript, "", func(st State) (State, domain.Paper, *lifecycle.Transition, error) {
		next, p, err := st.SetManuscript(paperID, path)
		return next, p, nil, err
	})
}

// =============================================================================
// Lookups
// =============================================================================

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Users returns every user in creation order.
func (s *Store) Users() []domain.User {
	return s.Snapshot().Users
}

// Papers returns every paper in submission order.
func (s *Store) Papers() []domain.Paper {
	return s.Snapshot().Papers
}

// Professors returns every PROFESSOR account.
func (s *Store) Professors() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UsersWithRole(domain.RoleProfessor)
}

// UserByID returns the user with id.
func (s *Store) UserByID(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserByID(id)
}

// UserByEmail returns the user with email, compared case-insensitively.
func (s *Store) UserByEmail(email string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserByEmail(email)
}

// PaperByID returns the paper with id.
func (s *Store) PaperByID(id string) (domain.Paper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PaperByID(id)
}

// PapersByAuthor returns the papers submitted by authorID.
func (s *Store) PapersByAuthor(authorID string) []domain.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PapersWhere(func(p domain.Paper) bool { return p.AuthorID == authorID })
}

// PapersByProfessor returns the papers assigned to professorID.
func (s *Store) PapersByProfessor(professorID string) []domain.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PapersWhere(func(p domain.Paper) bool { return p.AssignedProfessorID == professorID })
}

// CurrentUser returns a copy of the single-session actor, or nil.
func (s *Store) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return nil
	}
	u := *s.state.CurrentUser
	return &u
}

// Info returns metadata about the persisted snapshot.
func (s *Store) Info(ctx context.Context) (*repository.SnapshotInfo, error) {
	return s.repo.Stat(ctx, s.config.Name)
}
