package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"jobpazar/apperr"
	"jobpazar/mail"
)

var (
	// ErrInvalidCredentials signals wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = apperr.New(apperr.KindValidation, "auth: password must be at least 8 characters", "Şifre en az 8 karakter olmalıdır.")
	// ErrMissingFields signals that username or email is empty.
	ErrMissingFields = apperr.New(apperr.KindValidation, "auth: username and email are required", "Kullanıcı adı ve e-posta zorunludur.")
	// ErrInvalidRole signals an unknown or non-self-assignable role.
	ErrInvalidRole = apperr.New(apperr.KindValidation, "auth: invalid role", "Geçersiz rol.")
)

const welcomeSubject = "Welcome to JobPazar!"

// Service handles account business logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	mailer    mail.Mailer
	logger    *log.Logger
	now       func() time.Time
}

// LoginResult bundles the token and domain user returned after a successful login.
type LoginResult struct {
	Token string
	User  User
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
		logger:    log.Default(),
		now:       time.Now,
	}
}

// WithMailer enables the best-effort welcome mail on registration.
func (s *Service) WithMailer(m mail.Mailer) *Service {
	s.mailer = m
	return s
}

func (s *Service) WithLogger(l *log.Logger) *Service {
	s.logger = l
	return s
}

func (s *Service) WithTokenTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a new user account. Self-registration may pick EMPLOYER
// or FREELANCER; an empty role defaults to EMPLOYER.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, ErrMissingFields
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	role := Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if role == "" {
		role = RoleEmployer
	}
	if role != RoleEmployer && role != RoleFreelancer {
		return nil, ErrInvalidRole
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	s.sendWelcome(ctx, user)
	return &user, nil
}

func (s *Service) sendWelcome(ctx context.Context, user User) {
	if s.mailer == nil {
		return
	}
	body := "Dear " + user.Username + ",\n\n" +
		"Welcome to JobPazar - Your Freelancer Marketplace!\n\n" +
		"You have successfully registered. You can now:\n" +
		"- Post jobs as an employer\n" +
		"- Apply for jobs as a freelancer\n" +
		"- Connect with talented professionals\n\n" +
		"Best regards,\n" +
		"JobPazar Team"
	if err := s.mailer.Send(ctx, user.Email, welcomeSubject, body); err != nil {
		s.logger.Printf("[auth] welcome mail to user %s failed: %v", user.ID, err)
	}
}

// Login authenticates a user and returns a JWT token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{
		Token: token,
		User:  user,
	}, nil
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestRole records that the user asked to switch to role.
func (s *Service) RequestRole(ctx context.Context, userID string, role Role) (*User, error) {
	role = Role(strings.ToUpper(strings.TrimSpace(string(role))))
	if !isValidRole(role) {
		return nil, ErrInvalidRole
	}
	user, err := s.repo.SetRequestedRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyToken validates a JWT token and returns the user ID.
func (s *Service) VerifyToken(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid user_id in token")
		}
		roleStr, ok := claims["role"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid role in token")
		}
		role := Role(roleStr)
		if !isValidRole(role) {
			return "", "", fmt.Errorf("auth: invalid role %q in token", roleStr)
		}
		return userID, role, nil
	}

	return "", "", fmt.Errorf("auth: invalid token")
}

func (s *Service) generateToken(userID string, role Role) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func isValidRole(role Role) bool {
	switch role {
	case RoleEmployer, RoleFreelancer, RoleAdmin:
		return true
	default:
		return false
	}
}
