// Package session provides the demo sign-in used by checkout. It accepts any
// non-empty credentials and is not an authentication system.
package session

import (
	"errors"
	"strings"
	"sync"
)

// ErrMissingCredentials is returned when email or password is blank.
var ErrMissingCredentials = errors.New("email and password are required")

// Provider supplies the signed-in user to the order flow.
type Provider interface {
	CurrentUserID() (string, bool)
	IsAuthenticated() bool
}

// Demo is an in-memory Provider. The user id is the normalized email.
type Demo struct {
	mu     sync.RWMutex
	userID string
}

// NewDemo returns a signed-out session.
func NewDemo() *Demo {
	return &Demo{}
}

// Login signs in with any non-empty email and password.
func (d *Demo) Login(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return "", ErrMissingCredentials
	}
	d.mu.Lock()
	d.userID = email
	d.mu.Unlock()
	return email, nil
}

// CurrentUserID returns the signed-in user, if any.
func (d *Demo) CurrentUserID() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.userID, d.userID != ""
}

func (d *Demo) IsAuthenticated() bool {
	_, ok := d.CurrentUserID()
	return ok
}

// Logout signs the user out.
func (d *Demo) Logout() {
	d.mu.Lock()
	d.userID = ""
	d.mu.Unlock()
}

// Static is a Provider fixed to one user id; an empty id is signed out.
type Static string

func (s Static) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

func (s Static) IsAuthenticated() bool {
	return s != ""
}
