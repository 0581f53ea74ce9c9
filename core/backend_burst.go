package core

import (
	"math"
	"sync"

	"dimmer/hal"
)

// DefaultBurstWindow is the number of half-cycles a burst dimmer
// equidistributes its on/off slots over, absent an explicit window.
const DefaultBurstWindow = 20

// burstBackend implements integer-cycle/semi-period burst control
// (cycle stealing): instead of phase-firing within a half-cycle, it
// holds the load fully on or fully off for whole half-cycles, choosing
// which ones via a single running Bresenham accumulator. That gives an
// exact on-count over any window-length run of half-cycles and spreads
// them as evenly as a line-drawing algorithm spreads pixels — no stored
// schedule, no drift, and it reacts immediately to a duty-cycle change
// instead of waiting for a window boundary. Tick, which actually drives
// the edges, is called once per mains half-cycle by the FireEngine the
// dimmer registers with as a Ticker — the same zero-cross upcall that
// drives the original's cycle-stealing implementation.
type burstBackend struct {
	engine *FireEngine
	pin    hal.Pin
	window int

	mu     sync.Mutex
	pos    int
	err    int
	target int
}

// NewBurstDimmer creates a dimmer that holds pin on or off for whole
// mains half-cycles, equidistributed over a rolling window of
// windowHalfCycles (DefaultBurstWindow if 0). engine supplies the
// zero-cross cadence that drives Tick.
func NewBurstDimmer(engine *FireEngine, pin hal.Pin, windowHalfCycles int) *Dimmer {
	if windowHalfCycles <= 0 {
		windowHalfCycles = DefaultBurstWindow
	}
	b := &burstBackend{engine: engine, pin: pin, window: windowHalfCycles}
	return New(Burst, b)
}

func (b *burstBackend) TypeName() string { return "burst" }

func (b *burstBackend) Begin(d *Dimmer) error {
	gpio := hal.MustGPIO()
	if err := gpio.ConfigureOutput(b.pin); err != nil {
		return err
	}
	if err := gpio.SetPin(b.pin, false); err != nil {
		return err
	}
	b.engine.registerTicker(b)
	return nil
}

func (b *burstBackend) End(d *Dimmer) {
	b.engine.unregisterTicker(b)
	hal.MustGPIO().SetPin(b.pin, false)
}

// Apply latches the current duty cycle as a target on-count per window.
// The actual GPIO edges happen in Tick, driven by the half-cycle cadence
// — burst dimmers don't need the phase-control engine's microsecond
// timer, only to know when a half-cycle has elapsed.
func (b *burstBackend) Apply(d *Dimmer) bool {
	var fire float64
	if d.online {
		fire = d.dutyCycleFireRaw()
	}
	b.mu.Lock()
	b.target = int(fire*float64(b.window) + 0.5)
	b.mu.Unlock()
	return true
}

// Tick advances the scheduler by one mains half-cycle, driving the pin
// on or off so that, over any run of window consecutive ticks at a
// constant duty cycle, exactly target of them are on. It does not
// balance on-slots between the two half-cycle polarities: when
// window/target is an even number (e.g. target = window/2) every
// on-slot falls on the same polarity.
func (b *burstBackend) Tick() error {
	b.mu.Lock()
	b.err += b.target
	on := false
	if b.err >= b.window {
		b.err -= b.window
		on = true
	}
	b.pos++
	if b.pos >= b.window {
		b.pos = 0
	}
	b.mu.Unlock()
	return hal.MustGPIO().SetPin(b.pin, on)
}

// CalculateHarmonics has no phase-control harmonics model for a burst
// dimmer: it doesn't fire within the half-cycle at all, so no amplitude
// beyond the fundamental can be derived from duty_cycle_fire alone. H1
// is always 100% by definition (every harmonics series is normalized to
// its own fundamental); every harmonic above it is left as NaN.
func (b *burstBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	out[0] = 100
	for i := 1; i < len(out); i++ {
		out[i] = math.NaN()
	}
	return true
}
