package core

import (
	"fmt"

	"dimmer/hal"
)

// phaseControlBackend drives a TRIAC/random-SSR gate through a FireEngine.
// All of its real-time behavior lives in the engine; this type only
// computes the firing delay in the foreground (§9: "never in the ISR")
// and manages registration.
type phaseControlBackend struct {
	engine *FireEngine
	pin    hal.Pin

	dim   *Dimmer
	state *phaseControlState
}

// NewPhaseControlDimmer creates a TRIAC/random-SSR dimmer driven by
// engine on the given GPIO pin.
func NewPhaseControlDimmer(engine *FireEngine, pin hal.Pin) *Dimmer {
	b := &phaseControlBackend{engine: engine, pin: pin}
	d := New(PhaseControl, b)
	b.dim = d
	return d
}

func (b *phaseControlBackend) TypeName() string { return "phase_control" }

func (b *phaseControlBackend) Begin(d *Dimmer) error {
	gpio := hal.MustGPIO()
	if err := gpio.ConfigureOutput(b.pin); err != nil {
		return fmt.Errorf("core: invalid pin for phase-control dimmer: %w", err)
	}
	if err := gpio.SetPin(b.pin, false); err != nil {
		return err
	}

	state, err := b.engine.register(b)
	if err != nil {
		return err
	}
	b.state = state

	if sp := b.engine.SemiPeriod(); sp > 0 {
		d.semiPeriodUS = sp
	}
	return nil
}

func (b *phaseControlBackend) End(d *Dimmer) {
	b.engine.unregister(b)
	b.state = nil
	hal.MustGPIO().SetPin(b.pin, false)
}

// Apply computes the firing delay from the committed duty_cycle_fire and
// semi-period (§4.4.2) and latches it where the ISR pair can see it.
func (b *phaseControlBackend) Apply(d *Dimmer) bool {
	fire := d.dutyCycleFireRaw()
	sp := d.semiPeriodUS

	var delay uint16
	switch {
	case !d.online || sp == 0 || fire == 0:
		delay = sentinelDelay
	case fire == 1:
		delay = 0
	default:
		us := (1 - fire) * float64(sp)
		if us < float64(PhaseDelayMinUS) {
			us = float64(PhaseDelayMinUS)
		}
		delay = uint16(us + 0.5)
	}

	if b.state != nil {
		b.engine.lock.Acquire()
		b.state.delay = delay
		b.engine.lock.Release()
	}
	return true
}

func (b *phaseControlBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	return phaseControlHarmonics(d.dutyCycleFireRaw(), out)
}

// FiringDelay returns the last firing delay latched by Apply, in
// microseconds, or sentinelDelay's sentinel value (65535) if the dimmer
// will not fire this half-cycle.
func (b *phaseControlBackend) FiringDelay() uint16 {
	if b.state == nil {
		return sentinelDelay
	}
	return b.state.delay
}
