//go:build tinygo

package hal

import "runtime/interrupt"

// State is the saved global-interrupt-enable state.
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state.
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state.
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}
