package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

const bridgeBuffer = 16

// Bridge carries externally dispatched token updates into the state machine.
// Out-of-band token rotations (e.g. another subsystem's retry-on-401 logic)
// publish here instead of mutating session state directly, preserving the
// single-writer invariant.
type Bridge struct {
	updates chan string
}

// NewBridge creates a Bridge with a small buffer so publishers are not
// blocked by a momentarily busy consumer.
func NewBridge() *Bridge {
	return &Bridge{updates: make(chan string, bridgeBuffer)}
}

// Publish submits a new access token. The empty string signals that the token
// was cleared. Publishing never blocks; when the buffer is full the update is
// dropped with a warning, as a newer update will supersede it anyway.
func (b *Bridge) Publish(token string) {
	select {
	case b.updates <- token:
	default:
		log.Warn().Msg("Token update channel full, dropping update")
	}
}

// ConsumeTokenUpdates folds published token updates into the session as
// partial commits: access token and authentication flag only, leaving the
// user and the persisted refresh token untouched. Blocks until ctx is done;
// run it on its own goroutine.
func (m *Manager) ConsumeTokenUpdates(ctx context.Context, bridge *Bridge) {
	for {
		select {
		case <-ctx.Done():
			return
		case token := <-bridge.updates:
			m.applyTokenUpdate(token)
		}
	}
}

func (m *Manager) applyTokenUpdate(token string) {
	gen := m.currentGeneration()
	m.finalize(gen, commit{
		setToken:      true,
		token:         token,
		setAuth:       true,
		authenticated: token != "",
	})
}
