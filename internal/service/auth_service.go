package service

import (
	"context"
	"errors"
	"strings"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	InvalidCredentialsMessage = "Invalid credentials."
	duplicateEmailMessage     = "A user with that email already exists."
	invalidEmailMessage       = "Enter a valid email address."
	invalidUsernameMessage    = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
)

// AuthOptions tunes AuthService behavior.
type AuthOptions struct {
	// UniqueEmail rejects registration and profile updates that reuse an
	// existing email address.
	UniqueEmail bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// AuthService owns account registration, credential checks and profile edits.
type AuthService struct {
	userRepo    repository.UserRepository
	uniqueEmail bool
	cost        int
	dummyHash   []byte
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil && p.Email == nil
}

func NewAuthService(userRepo repository.UserRepository, opts AuthOptions) *AuthService {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
	return &AuthService{
		userRepo:    userRepo,
		uniqueEmail: opts.UniqueEmail,
		cost:        cost,
		dummyHash:   dummy,
	}
}

// Register validates the input, reporting every failing field at once, and
// creates the user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	errs := newFieldErrorSet()

	s.checkUsername(errs, in.Username)
	if in.Password == "" {
		errs.add(models.CodeValidation, "password", requiredMessage)
	} else if err := validation.ValidatePassword(in.Password, in.Username); err != nil {
		errs.add(models.CodeWeakPassword, "password", sentence(err))
	}
	s.checkEmailFormat(errs, in.Email)

	if !errs.has("username") {
		taken, err := s.userRepo.UsernameTaken(ctx, in.Username, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.add(models.CodeDuplicateUsername, "username", repository.DuplicateUsernameMessage)
		}
	}
	if err := s.checkEmailUnique(ctx, errs, in.Email, 0); err != nil {
		return nil, err
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
	}
	// The unique index still guards the race between the check and the insert.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("register").Inc()
	user.Password = ""
	return user, nil
}

// Authenticate verifies a username/password pair. Every failure, including
// missing fields and unknown users, yields the same UNAUTHORIZED error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError(InvalidCredentialsMessage)
	if username == "" || password == "" {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, invalid
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.ErrorCode(err) != models.CodeNotFound {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			middleware.Logger.WarnContext(ctx, "password hash check failed", "user_id", user.ID, "error", err.Error())
		}
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, invalid
	}

	observability.AuthEvents.WithLabelValues("login").Inc()
	user.Password = ""
	return user, nil
}

// Profile returns the identity's current user record.
func (s *AuthService) Profile(ctx context.Context, id *middleware.Identity) (*models.User, error) {
	if id == nil {
		return nil, models.NewUnauthorizedError("User not authenticated.")
	}
	return s.userRepo.GetByID(ctx, id.UserID)
}

// UpdateProfile applies the present fields of patch to the identity's user.
// An empty patch is a successful no-op.
func (s *AuthService) UpdateProfile(ctx context.Context, id *middleware.Identity, patch ProfilePatch) (*models.User, error) {
	if id == nil {
		return nil, models.NewUnauthorizedError("User not authenticated.")
	}
	if patch.Empty() {
		return s.userRepo.GetByID(ctx, id.UserID)
	}

	errs := newFieldErrorSet()
	fields := map[string]any{}

	if patch.Username != nil {
		username := *patch.Username
		s.checkUsername(errs, username)
		if !errs.has("username") {
			taken, err := s.userRepo.UsernameTaken(ctx, username, id.UserID)
			if err != nil {
				return nil, err
			}
			if taken {
				errs.add(models.CodeDuplicateUsername, "username", repository.DuplicateUsernameMessage)
			}
		}
		fields["username"] = username
	}
	if patch.FirstName != nil {
		if err := validation.ValidateName(*patch.FirstName); err != nil {
			errs.add(models.CodeValidation, "firstname", sentence(err))
		}
		fields["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		if err := validation.ValidateName(*patch.LastName); err != nil {
			errs.add(models.CodeValidation, "lastname", sentence(err))
		}
		fields["last_name"] = *patch.LastName
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		s.checkEmailFormat(errs, email)
		if err := s.checkEmailUnique(ctx, errs, email, id.UserID); err != nil {
			return nil, err
		}
		fields["email"] = email
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return s.userRepo.Update(ctx, id.UserID, fields)
}

func (s *AuthService) checkUsername(errs *fieldErrorSet, username string) {
	if username == "" {
		errs.add(models.CodeValidation, "username", requiredMessage)
		return
	}
	if err := validation.ValidateUsername(username); err != nil {
		msg := invalidUsernameMessage
		if len(username) > 150 {
			msg = sentence(err)
		}
		errs.add(models.CodeInvalidUsername, "username", msg)
	}
}

// Email is optional; a present one must be well formed.
func (s *AuthService) checkEmailFormat(errs *fieldErrorSet, email string) {
	if email == "" {
		return
	}
	if err := validation.ValidateEmail(email); err != nil {
		errs.add(models.CodeInvalidEmail, "email", invalidEmailMessage)
	}
}

func (s *AuthService) checkEmailUnique(ctx context.Context, errs *fieldErrorSet, email string, excludeID uint) error {
	if !s.uniqueEmail || email == "" || errs.has("email") {
		return nil
	}
	taken, err := s.userRepo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		errs.add(models.CodeDuplicateEmail, "email", duplicateEmailMessage)
	}
	return nil
}
