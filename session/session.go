// Package session owns the authenticated-session state machine: it arbitrates
// concurrent transition requests from bootstrap, login, logout, refresh, and
// out-of-band token updates, and applies their effects through a single
// fixed-order commit so observers never see a half-applied transition.
package session

import "github.com/jrsteele09/go-session-manager/users"

// Session is an immutable snapshot of the externally observable session state.
// Consumers receive copies; mutation happens only through the manager's commit.
type Session struct {
	AccessToken     string      // Short-lived credential; empty when unauthenticated
	User            *users.User // Present iff a token is held and profile resolution succeeded
	IsAuthenticated bool        // Maintained in lockstep with AccessToken presence
	IsInitializing  bool        // True only during the one-time bootstrap phase
	Error           string      // Last user-facing authentication error
}

func (s Session) clone() Session {
	copied := s
	if s.User != nil {
		user := *s.User
		copied.User = &user
	}
	return copied
}
