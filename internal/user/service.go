package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature,
	// expiry, or subject checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidColor is returned when a color update is not a hex
	// color of the form #RGB or #RRGGBB.
	ErrInvalidColor = errors.New("invalid color format, expected #RRGGBB")
	// ErrEmailTaken is returned when signup hits a duplicate email or
	// username.
	ErrEmailTaken = errors.New("user already exists")
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const tokenTTL = 24 * time.Hour

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	repo      *Repository
	jwtSecret string
}

func NewService(repo *Repository, secret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: secret,
	}
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*User, error) {
	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPwd),
	}
	return s.repo.CreateUser(ctx, u)
}

func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*SignInResponse, error) {
	u, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, err
	}

	ss, err := s.signToken(u)
	if err != nil {
		return nil, err
	}

	return &SignInResponse{
		AccessToken: ss,
		ID:          u.ID,
		Username:    u.Username,
		Color:       u.Color,
	}, nil
}

func (s *Service) signToken(u *User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-relay",
			Subject:   strconv.Itoa(u.ID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken checks the token signature and expiry and returns the
// user id carried in the subject claim. It performs no database reads;
// whether that user still exists is the caller's concern.
func (s *Service) ValidateToken(tokenString string) (int, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

// LookupUser resolves the current display attributes for a user id.
// The relay gateway calls this at connection open so sessions carry the
// latest username and color rather than whatever the token was minted with.
func (s *Service) LookupUser(ctx context.Context, id int) (username, color string, err error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return u.Username, u.Color, nil
}

func (s *Service) Profile(ctx context.Context, id int) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) UpdateColor(ctx context.Context, id int, color string) (*User, error) {
	if !hexColorPattern.MatchString(color) {
		return nil, ErrInvalidColor
	}
	return s.repo.UpdateColor(ctx, id, color)
}
