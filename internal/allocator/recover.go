package allocator

import (
	"math"
	"time"

	"hierarchical-allocator/internal/resources"
)

// Recover implements the pause/resume recovery behavior of spec.md §4.6: on
// master restart, allocation is paused until effectiveExpected agents have
// re-registered (effectiveExpected = floor(expectedAgentCount * recoveryFactor))
// or AllocationHoldOffRecoveryTimeout elapses, whichever comes first. A
// recovery with no quotas configured is a no-op. Quotas are still applied
// even if effectiveExpected rounds down to zero (or the expected count is
// non-positive); only the pause itself is skipped.
func (a *Allocator) Recover(expectedAgentCount int, quotas map[string]resources.Quantities) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(quotas) == 0 {
		return
	}

	for role, guarantee := range quotas {
		a.quota.Guarantees[role] = guarantee
		r := a.reg.EnsureRole(role)
		g := guarantee
		r.Quota = &g
		a.ensureRoleInSorters(role, r)
	}

	effectiveExpected := int(math.Floor(float64(expectedAgentCount) * a.options.AgentRecoveryFactor))
	if effectiveExpected <= 0 {
		return
	}

	a.expectedAgentCount = effectiveExpected
	a.paused = true

	a.resumeTimer = time.AfterFunc(a.options.AllocationHoldOffRecoveryTimeout, func() {
		a.dispatch(a.resumeLocked)
	})

	a.logger.WithField("effectiveExpected", a.expectedAgentCount).
		WithField("holdOffTimeout", a.options.AllocationHoldOffRecoveryTimeout).
		Info("allocator entering recovery, allocation paused")
}

// resumeLocked clears the pause and stops the holdoff timer; must be called
// with mu held (either directly, by AddAgent reaching the threshold, or via
// dispatch from the holdoff timer's own goroutine).
func (a *Allocator) resumeLocked() {
	if !a.paused {
		return
	}
	a.paused = false
	if a.resumeTimer != nil {
		a.resumeTimer.Stop()
		a.resumeTimer = nil
	}
	a.logger.Info("allocator resuming allocation after recovery")
	for id := range a.reg.Agents {
		a.allocationCandidates[id] = true
	}
	a.runAllocationLocked()
}

// Pause halts allocation runs until Resume is called. Unlike Recover, this
// is an explicit operator action with no holdoff timer.
func (a *Allocator) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = true
	if a.resumeTimer != nil {
		a.resumeTimer.Stop()
		a.resumeTimer = nil
	}
}

// Resume lifts an explicit Pause (or an in-progress recovery) immediately.
func (a *Allocator) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumeLocked()
}
