package notify

import "sync"

// Permission is the notification permission state.
type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// ParsePermission maps a config string to a Permission, defaulting to
// undetermined for anything unrecognized.
func ParsePermission(raw string) Permission {
	switch Permission(raw) {
	case PermissionGranted, PermissionDenied:
		return Permission(raw)
	default:
		return PermissionUndetermined
	}
}

// Gate holds the single notification permission decision. Denied is terminal;
// undetermined can be resolved exactly once per Show call by Request.
type Gate struct {
	mu       sync.Mutex
	status   Permission
	resolver func() Permission
}

// NewGate creates a gate in the given initial state. The resolver is invoked
// when an undetermined gate is asked for a decision; a nil resolver denies.
func NewGate(initial Permission, resolver func() Permission) *Gate {
	return &Gate{status: initial, resolver: resolver}
}

// Status returns the current permission without prompting.
func (g *Gate) Status() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Request resolves an undetermined permission and returns the result. Once
// granted or denied the stored decision is returned unchanged.
func (g *Gate) Request() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != PermissionUndetermined {
		return g.status
	}
	if g.resolver == nil {
		g.status = PermissionDenied
		return g.status
	}

	decided := g.resolver()
	if decided != PermissionGranted {
		decided = PermissionDenied
	}
	g.status = decided
	return g.status
}

// CapabilityResolver grants permission when the platform notifier is usable.
func CapabilityResolver(n Notifier) func() Permission {
	return func() Permission {
		if n != nil && n.IsSupported() {
			return PermissionGranted
		}
		return PermissionDenied
	}
}
