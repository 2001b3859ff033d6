package identity

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// ErrNoActiveUser is returned when an alert is raised without a signed-in user.
var ErrNoActiveUser = errors.New("no active user session")

// UserSession reports the currently signed-in user.
type UserSession interface {
	Current() (*walk.Actor, bool)
}

// LocalUser is the operating system user of this device.
type LocalUser struct {
	// actor is detected once at construction.
	actor *walk.Actor
}

// DetectLocalUser gathers the host and user names of the current process.
func DetectLocalUser() (*LocalUser, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &LocalUser{
		actor: &walk.Actor{
			Hostname: hostname,
			Username: currentUser.Username,
		},
	}, nil
}

// Current always reports the detected user as active.
func (u *LocalUser) Current() (*walk.Actor, bool) {
	return u.actor.Clone(), true
}

// Static is a UserSession with a fixed answer; a nil Actor means signed out.
type Static struct {
	Actor *walk.Actor
}

// Current returns the configured actor.
func (s Static) Current() (*walk.Actor, bool) {
	if s.Actor == nil {
		return nil, false
	}

	return s.Actor.Clone(), true
}
