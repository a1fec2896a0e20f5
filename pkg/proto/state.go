package proto

import "sync"

// State is the connection's position in the lifecycle spec §4.6
// defines: Disconnected -> Connecting -> Connected -> Authenticating
// -> Authenticated -> Disconnecting -> Disconnected. Grounded on
// pkg/agent/agent.go's State/String()/setState shape, generalized from
// that teacher's five states to these six.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// connState is an embeddable, lock-guarded holder for the client's
// current State, mirroring agent.Agent's mu+state fields and its
// State()/setState() accessor pair.
type connState struct {
	mu    sync.RWMutex
	state State
}

func (c *connState) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *connState) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// clearSession drops back to Connected from any authenticated-adjacent
// state, per spec §4.6's "session_timeout or server-forced-logout
// response: any -> Connected."
func (c *connState) clearSession() {
	c.setState(StateConnected)
}
