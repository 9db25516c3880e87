package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"brainbox/internal/model"
	"brainbox/internal/repository"
)

const minPasswordLength = 8

const (
	msgAuthRequired        = "Authentication required. Please login."
	msgBadCredentials      = "Invalid username/email or password."
	msgVerificationNeeded  = "Access denied. Please complete the verification step on the registration page."
	msgVerificationExpired = "Verification has expired. Please verify the code again on the registration page."
)

// AuthOptions configures the registration gate and session lifetime.
type AuthOptions struct {
	// RegistrationCode is the shared secret for verify_code. Empty disables registration.
	RegistrationCode string
	VerificationTTL  time.Duration
	SessionTTL       time.Duration
}

// AuthService handles registration, login and the sessions behind the cookie.
type AuthService struct {
	store *repository.Store
	now   Clock
	opts  AuthOptions
}

func NewAuthService(store *repository.Store, now Clock, opts AuthOptions) *AuthService {
	if now == nil {
		now = systemClock
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 10 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &AuthService{store: store, now: now, opts: opts}
}

// SessionTTL is how long an issued cookie stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.opts.SessionTTL
}

// session returns the live session for token, or nil. Expired rows are removed.
func (s *AuthService) session(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.store.Sessions.Find(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("Could not read session.", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		if err := s.store.Sessions.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Msg("failed to drop expired session")
		}
		return nil, nil
	}
	return session, nil
}

func (s *AuthService) newSession(ctx context.Context, userID *uint, username string) (*model.Session, error) {
	now := s.now()
	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, storageErr("Could not start a session.", err)
	}
	return session, nil
}

// Authenticate resolves a session token into an Actor.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, error) {
	session, err := s.session(ctx, token)
	if err != nil {
		return Actor{}, err
	}
	if session == nil || !session.Authenticated() {
		return Actor{}, unauthorizedErr(msgAuthRequired)
	}
	return Actor{UserID: *session.UserID, Username: session.Username}, nil
}

// CheckAuth reports the logged-in user for token, if any.
func (s *AuthService) CheckAuth(ctx context.Context, token string) (*Actor, error) {
	actor, err := s.Authenticate(ctx, token)
	if KindOf(err) == KindUnauthorized {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &actor, nil
}

// VerifyCode checks the registration code and marks the session verified. It
// returns the session token to keep, which is new when token was unknown.
func (s *AuthService) VerifyCode(ctx context.Context, token, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return token, validationErr("Verification code cannot be empty.")
	}
	if s.opts.RegistrationCode == "" {
		return token, forbiddenErr("Registration is disabled.")
	}

	session, err := s.session(ctx, token)
	if err != nil {
		return token, err
	}
	if session == nil {
		if session, err = s.newSession(ctx, nil, ""); err != nil {
			return token, err
		}
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(s.opts.RegistrationCode)) != 1 {
		if err := s.store.Sessions.SetVerified(ctx, session.Token, nil); err != nil {
			return session.Token, storageErr("Could not update session.", err)
		}
		log.Warn().Msg("registration code rejected")
		return session.Token, forbiddenErr("Invalid verification code. Please try again.")
	}

	now := s.now()
	if err := s.store.Sessions.SetVerified(ctx, session.Token, &now); err != nil {
		return session.Token, storageErr("Could not update session.", err)
	}
	return session.Token, nil
}

// RegisterInput is a register request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The session must have passed VerifyCode within
// the verification TTL; the verification is spent by any attempt that gets past
// that check.
func (s *AuthService) Register(ctx context.Context, token string, in RegisterInput) (*model.User, error) {
	session, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.VerifiedAt == nil {
		return nil, forbiddenErr(msgVerificationNeeded)
	}
	if s.now().Sub(*session.VerifiedAt) >= s.opts.VerificationTTL {
		s.clearVerification(ctx, session.Token)
		return nil, forbiddenErr(msgVerificationExpired)
	}
	defer s.clearVerification(ctx, session.Token)

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, validationErr("All fields are required.")
	}
	if !validEmail(email) {
		return nil, validationErr("Invalid email format.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationErr("Password must be at least %d characters long.", minPasswordLength)
	}

	taken, err := s.store.Users.Taken(ctx, username, email)
	if err != nil {
		return nil, storageErr("Could not check existing accounts.", err)
	}
	if taken {
		return nil, conflictErr("Username or email already taken.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, storageErr("Error hashing password.", err)
	}
	user := &model.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, storageErr("Registration failed.", err)
	}

	log.Info().Uint("user", user.ID).Str("username", username).Msg("user registered")
	return user, nil
}

func (s *AuthService) clearVerification(ctx context.Context, token string) {
	if err := s.store.Sessions.SetVerified(ctx, token, nil); err != nil {
		log.Warn().Err(err).Msg("failed to clear registration verification")
	}
}

// Login checks credentials and issues a fresh session, dropping the old one.
func (s *AuthService) Login(ctx context.Context, oldToken, login, password string) (string, Actor, error) {
	user, err := s.CheckPassword(ctx, login, password)
	if err != nil {
		return "", Actor{}, err
	}

	if oldToken != "" {
		if err := s.store.Sessions.Delete(ctx, oldToken); err != nil {
			log.Warn().Err(err).Msg("failed to drop previous session")
		}
	}
	session, err := s.newSession(ctx, &user.ID, user.Username)
	if err != nil {
		return "", Actor{}, err
	}

	log.Info().Uint("user", user.ID).Msg("user logged in")
	return session.Token, Actor{UserID: user.ID, Username: user.Username}, nil
}

// CheckPassword returns the user for a username-or-email and password pair.
func (s *AuthService) CheckPassword(ctx context.Context, login, password string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, validationErr("Username/Email and password are required.")
	}
	user, err := s.store.Users.FindByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorizedErr(msgBadCredentials)
	}
	if err != nil {
		return nil, storageErr("Database error.", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.Warn().Str("login", login).Msg("login failed")
		return nil, unauthorizedErr(msgBadCredentials)
	}
	return user, nil
}

// Logout ends the session. Unknown tokens are fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Sessions.Delete(ctx, token); err != nil {
		return storageErr("Could not end session.", err)
	}
	return nil
}

// LinkTelegram binds a Telegram account to the user owning the credentials.
func (s *AuthService) LinkTelegram(ctx context.Context, telegramID int64, login, password string) (Actor, error) {
	user, err := s.CheckPassword(ctx, login, password)
	if err != nil {
		return Actor{}, err
	}
	if err := s.store.Users.LinkTelegram(ctx, user.ID, telegramID); err != nil {
		return Actor{}, storageErr("Could not link Telegram account.", err)
	}
	log.Info().Uint("user", user.ID).Int64("telegram_id", telegramID).Msg("telegram linked")
	return Actor{UserID: user.ID, Username: user.Username}, nil
}

// ActorForTelegram returns the account linked to telegramID.
func (s *AuthService) ActorForTelegram(ctx context.Context, telegramID int64) (Actor, error) {
	user, err := s.store.Users.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Actor{}, unauthorizedErr("This chat is not linked. Use /link <username> <password>.")
	}
	if err != nil {
		return Actor{}, storageErr("Database error.", err)
	}
	return Actor{UserID: user.ID, Username: user.Username}, nil
}

// ActorForUsername is used by the offline CLI, which trusts its operator.
func (s *AuthService) ActorForUsername(ctx context.Context, username string) (Actor, error) {
	user, err := s.store.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return Actor{}, lookupErr(err, "User not found.")
	}
	return Actor{UserID: user.ID, Username: user.Username}, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
