package hal

// Lock is the interrupt-safe spinlock the fire engine's dimmer registry is
// guarded by (spec.md §3/§5: "an interrupt-safe spinlock guarding
// dimmer_list"). It disables interrupts for its critical section rather
// than spinning on a futex, because on a single-core MCU with two ISR
// sources and one foreground context, that is the only way to guarantee
// mutual exclusion with an interrupt handler.
type Lock struct {
	state State
}

// Acquire disables interrupts and saves the previous interrupt state in
// the Lock for Release. Safe to call from either foreground or interrupt
// context.
func (l *Lock) Acquire() {
	l.state = disableInterrupts()
}

// Release restores the interrupt state saved by Acquire.
func (l *Lock) Release() {
	restoreInterrupts(l.state)
}
