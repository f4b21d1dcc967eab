package accounts

import (
	"sync"
	"sync/atomic"
)

// Operation names a gated entry point of the account service
type Operation string

const (
	OpSignin          Operation = "signin"
	OpSignup          Operation = "signup"
	OpConfirm         Operation = "confirm"
	OpChangePassword  Operation = "change_pw"
	OpForgotPassword  Operation = "forgot_pw"
	OpConfirmPassword Operation = "confirm_pw"
	OpAccountUpsert   Operation = "create_account"
)

// MaintenanceSwitch is a process wide switch that short circuits all
// but an allow listed set of operations. The flag is read on every
// request and flipped rarely by an operator, so reads take no lock.
type MaintenanceSwitch struct {
	enabled atomic.Bool

	mu     sync.RWMutex
	exempt map[Operation]struct{}
}

// NewMaintenanceSwitch builds a switch with the given initial state.
// Signin is always exempt so operators can communicate downtime to
// users that try to authenticate.
func NewMaintenanceSwitch(enabled bool, exempt ...Operation) *MaintenanceSwitch {
	ms := &MaintenanceSwitch{
		exempt: map[Operation]struct{}{
			OpSignin: {},
		},
	}
	ms.enabled.Store(enabled)

	for _, op := range exempt {
		ms.exempt[op] = struct{}{}
	}

	return ms
}

// Set flips the switch. Visible to in-flight requests on their next
// gate evaluation.
func (ms *MaintenanceSwitch) Set(enabled bool) {
	ms.enabled.Store(enabled)
}

// Enabled reports the current switch state
func (ms *MaintenanceSwitch) Enabled() bool {
	return ms.enabled.Load()
}

// Exempt adds operations to the allow list at runtime
func (ms *MaintenanceSwitch) Exempt(ops ...Operation) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, op := range ops {
		ms.exempt[op] = struct{}{}
	}
}

// IsExempt reports whether the operation bypasses the switch
func (ms *MaintenanceSwitch) IsExempt(op Operation) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.exempt[op]
	return ok
}

// Check fails fast with ErrMaintenance when the switch is on and the
// operation is not allow listed. It runs before ACL and before any
// lifecycle logic so storage and notification are never reached.
func (ms *MaintenanceSwitch) Check(op Operation) error {
	if !ms.Enabled() {
		return nil
	}
	if ms.IsExempt(op) {
		return nil
	}
	return ErrMaintenance
}
