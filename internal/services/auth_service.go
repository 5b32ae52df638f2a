package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/kiz-commit/porchrecords-sub005/internal/domain"
	"github.com/kiz-commit/porchrecords-sub005/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

// AuthService supplies the "is this caller an admin" capability the sync
// subsystem consumes as a gate.
type AuthService struct {
	Users *repos.UserRepo
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

// IsAdmin resolves a session to the admin gate.
func (s *AuthService) IsAdmin(sid string) bool {
	u, err := s.CurrentUser(sid)
	return err == nil && u != nil && u.Role == "ADMIN"
}
