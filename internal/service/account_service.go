package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// AccountStore is the part of the session store used for accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, a store.NewAccount) (domain.User, error)
	SetPassword(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, id, name string) (domain.User, error)
	BanUser(ctx context.Context, id string) (domain.User, error)
	UnbanUser(ctx context.Context, id string) (domain.User, error)
	UserByID(id string) (domain.User, bool)
	UserByEmail(email string) (domain.User, bool)
	Users() []domain.User
	Professors() []domain.User
}

// AccountService handles registration, sign-in and user administration.
type AccountService struct {
	store      AccountStore
	logger     zerolog.Logger
	bcryptCost int
}

// NewAccountService creates a new AccountService.
func NewAccountService(st AccountStore, logger zerolog.Logger, bcryptCost int) *AccountService {
	return &AccountService{
		store:      st,
		logger:     logger.With().Str("service", "account").Logger(),
		bcryptCost: bcryptCost,
	}
}

// RegisterInput contains the data needed to register an author account.
type RegisterInput struct {
	Name     string `form:"name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,min=8,bcrypt"`
}

// Register creates an ACTIVE USER account. It does not sign the account in.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.create(ctx, domain.RoleUser, input.Name, input.Email, input.Password, input)
}

// CreateProfessorInput contains the data needed to create a reviewer account.
type CreateProfessorInput struct {
	Name     string `form:"name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,min=8,bcrypt"`
}

// CreateProfessor creates an ACTIVE PROFESSOR account with an initial password.
func (s *AccountService) CreateProfessor(ctx context.Context, actor *domain.User, input CreateProfessorInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.create(ctx, domain.RoleProfessor, input.Name, input.Email, input.Password, input)
}

func (s *AccountService) create(ctx context.Context, role domain.Role, name, email, password string, input interface{}) (*domain.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user, err := s.store.CreateAccount(ctx, store.NewAccount{
		Name:         name,
		Email:        domain.NormalizeEmail(email),
		Role:         role,
		PasswordHash: hash,
	})
	if err = persisted(s.logger, "create_account", err); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Str("role", string(user.Role)).
		Msg("account created")

	return &user, nil
}

// LoginInput contains sign-in credentials.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`

	// Portal restricts sign-in to one role. Empty accepts any role.
	Portal domain.Role `form:"-"`
}

// Login verifies credentials and returns the account.
// Banned accounts may sign in; the route guard shows them the banned notice.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*domain.User, error) {
	if err := validateInput(input); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, ok := s.store.UserByEmail(input.Email)
	if !ok || !user.CanSignIn() {
		// Log but don't expose whether the email exists
		s.logger.Debug().Str("email", input.Email).Msg("unknown account during sign-in")
		return nil, ErrInvalidCredentials
	}

	match, err := auth.CheckPassword(user.PasswordHash, input.Password)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to verify password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !match {
		s.logger.Debug().Str("user_id", user.ID).Msg("invalid password during sign-in")
		return nil, ErrInvalidCredentials
	}

	if input.Portal != "" && user.Role != input.Portal {
		s.logger.Debug().
			Str("user_id", user.ID).
			Str("role", string(user.Role)).
			Str("portal", string(input.Portal)).
			Msg("sign-in at the wrong portal")
		return nil, ErrWrongPortal
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Bool("banned", user.IsBanned()).
		Msg("user signed in")

	return &user, nil
}

// EnsureAdmin seeds the configured ADMIN account. An existing admin with the
// same email gets its password reset to the configured one; an existing
// non-admin account with that email is a conflict.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	existing, ok := s.store.UserByEmail(email)
	if ok {
		if existing.Role != domain.RoleAdmin {
			return nil, false, domain.NewDomainError(domain.ErrConflict, "seed admin email belongs to a "+string(existing.Role), existing.ID)
		}
		match, err := auth.CheckPassword(existing.PasswordHash, password)
		if match {
			return &existing, false, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", existing.ID).Msg("stored seed admin password hash is unusable")
		}
		if err := s.setPassword(ctx, existing.ID, password); err != nil {
			return nil, false, err
		}
		s.logger.Info().Str("user_id", existing.ID).Msg("seed admin password updated")
		existing, _ = s.store.UserByID(existing.ID)
		return &existing, false, nil
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}
	user, err := s.store.CreateAccount(ctx, store.NewAccount{
		Name:         name,
		Email:        domain.NormalizeEmail(email),
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	})
	if err = persisted(s.logger, "create_admin", err); err != nil {
		return nil, false, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("seed admin created")
	return &user, true, nil
}

// UpdateProfileInput contains editable profile fields.
type UpdateProfileInput struct {
	Name string `form:"name" validate:"required,max=120"`
}

// UpdateProfile changes the actor's display name. Papers keep the author
// name they were submitted with.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *domain.User, input UpdateProfileInput) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrNoActor
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateProfile(ctx, actor.ID, input.Name)
	if err = persisted(s.logger, "update_profile", err); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("profile updated")
	return &user, nil
}

// ChangePasswordInput contains the data needed to change a password.
type ChangePasswordInput struct {
	OldPassword string `form:"old_password" validate:"required"`
	NewPassword string `form:"new_password" validate:"required,min=8,bcrypt"`
}

// ChangePassword replaces the actor's password after verifying the old one.
func (s *AccountService) ChangePassword(ctx context.Context, actor *domain.User, input ChangePasswordInput) error {
	if actor == nil {
		return domain.ErrNoActor
	}
	if err := validateInput(input); err != nil {
		return err
	}

	user, ok := s.store.UserByID(actor.ID)
	if !ok {
		return domain.ErrUserNotFound
	}

	// Verify old password
	match, err := auth.CheckPassword(user.PasswordHash, input.OldPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !match {
		return ErrInvalidCredentials
	}
	if input.OldPassword == input.NewPassword {
		return ErrSamePassword
	}

	if err := s.setPassword(ctx, user.ID, input.NewPassword); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password updated")
	return nil
}

func (s *AccountService) setPassword(ctx context.Context, id, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}
	return persisted(s.logger, "set_password", s.store.SetPassword(ctx, id, hash))
}

// Ban locks id out of the portal. Admins cannot ban themselves.
func (s *AccountService) Ban(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, domain.NewDomainError(domain.ErrForbidden, "admins cannot ban themselves", id)
	}

	user, err := s.store.BanUser(ctx, id)
	if err = persisted(s.logger, "ban_user", err); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("by", actor.ID).Msg("user banned")
	return &user, nil
}

// Unban restores id to ACTIVE.
func (s *AccountService) Unban(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.store.UnbanUser(ctx, id)
	if err = persisted(s.logger, "unban_user", err); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("by", actor.ID).Msg("user unbanned")
	return &user, nil
}

// Users returns every account.
func (s *AccountService) Users() []domain.User {
	return s.store.Users()
}

// Professors returns every PROFESSOR account.
func (s *AccountService) Professors() []domain.User {
	return s.store.Professors()
}

// UserByID returns the account with id.
func (s *AccountService) UserByID(id string) (*domain.User, error) {
	user, ok := s.store.UserByID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func requireAdmin(actor *domain.User) error {
	if actor == nil {
		return domain.ErrNoActor
	}
	if actor.Role != domain.RoleAdmin || actor.IsBanned() {
		return domain.ErrForbidden
	}
	return nil
}
