// Package session owns the identity → token → role resolution state machine.
// The controller is the single writer of the {identity, role, loading} view
// and of the token store; everything downstream reads snapshots.
package session

import (
	"github.com/tourdesk/tourdesk/internal/auth"
)

// State is the coarse controller state.
type State string

const (
	StateInitializing  State = "initializing"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Phase is the role-resolution sub-phase within StateAuthenticated.
type Phase string

const (
	PhaseNone         Phase = ""
	PhaseRolePending  Phase = "role_pending"
	PhaseRoleResolved Phase = "role_resolved"

	// PhaseRoleFailed is the degraded-but-observable state: the identity
	// provider vouches for the user but no backend session could be
	// established. Distinct from being signed out.
	PhaseRoleFailed Phase = "role_failed"
)

// Snapshot is a consistent copy of the controller's view. Role must not be
// trusted while Loading is true.
type Snapshot struct {
	Identity *auth.Identity
	Role     auth.Role
	State    State
	Phase    Phase
	Loading  bool
}

// Settled reports whether the snapshot reflects a fully processed identity:
// nothing is loading and no role resolution is in flight.
func (s Snapshot) Settled() bool {
	if s.Loading || s.State == StateInitializing {
		return false
	}
	return s.State == StateAnonymous || s.Phase != PhaseRolePending
}

// Degraded reports the authenticated-but-unverified state that composers must
// surface distinctly from "signed out".
func (s Snapshot) Degraded() bool {
	return s.State == StateAuthenticated && s.Phase == PhaseRoleFailed
}
