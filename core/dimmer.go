// Package core implements the dimmer abstraction, the firing-delay
// lookup table, the phase-control harmonics/metrics math, and the
// zero-cross-synchronized firing engine that schedules GPIO edges for
// TRIAC/SSR loads. It is hardware-agnostic: it talks to silicon only
// through the dimmer/hal interfaces, never directly.
package core

import (
	"fmt"
	"math"
	"sync"

	"dimmer/dimmerlog"
)

var dimmerLog = dimmerlog.New("dimmer")

// Variant tags the closed set of dimmer backends. The capability set is
// fixed and small, so dispatch is a field on Dimmer rather than an
// interface hierarchy.
type Variant int

const (
	PhaseControl Variant = iota
	PWM
	DAC
	Burst
	Virtual
)

func (v Variant) String() string {
	switch v {
	case PhaseControl:
		return "phase_control"
	case PWM:
		return "pwm"
	case DAC:
		return "dac_i2c"
	case Burst:
		return "burst"
	case Virtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Backend supplies the behavior that differs across dimmer variants: how
// a committed duty_cycle_fire turns into a hardware action, and how (or
// whether) harmonics can be computed beyond the degenerate 0/1 cases
// that Dimmer itself handles.
type Backend interface {
	TypeName() string
	Begin(d *Dimmer) error
	End(d *Dimmer)
	Apply(d *Dimmer) bool
	CalculateHarmonics(d *Dimmer, out []float64) bool
}

// Dimmer is one physical output: a duty-cycle state machine plus a
// backend that knows how to realize the computed firing ratio on
// hardware. dutyCycleFire is derived by setDutyCycleLocked (or forced to
// 0 by SetOnline(false)); it has no setter of its own.
type Dimmer struct {
	mu sync.Mutex

	variant Variant
	backend Backend

	enabled bool
	online  bool

	dutyCycle      float64
	dutyCycleFire  float64
	dutyCycleLimit float64
	dutyCycleMin   float64
	dutyCycleMax   float64

	powerLUTEnabled bool
	semiPeriodUS    uint16
}

// New creates a Dimmer of the given variant, driven by backend. The
// duty-cycle window defaults to the full [0,1] range.
func New(variant Variant, backend Backend) *Dimmer {
	return &Dimmer{
		variant:        variant,
		backend:        backend,
		dutyCycleLimit: 1,
		dutyCycleMax:   1,
	}
}

// Variant reports the dimmer's backend kind.
func (d *Dimmer) Variant() Variant { return d.variant }

// Type returns the backend's type name, e.g. "phase_control" or "pwm".
func (d *Dimmer) Type() string { return d.backend.TypeName() }

// Begin validates configuration, acquires hardware resources, marks the
// dimmer enabled, and replays the last requested duty cycle. Idempotent.
func (d *Dimmer) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled {
		return nil
	}
	if err := d.backend.Begin(d); err != nil {
		dimmerLog.Error("begin %s dimmer: %v", d.variant, err)
		return err
	}
	d.enabled = true
	d.setDutyCycleLocked(d.dutyCycle)
	dimmerLog.Info("%s dimmer enabled", d.variant)
	return nil
}

// End releases hardware resources and marks the dimmer disabled.
// Idempotent; always safe to call during teardown.
func (d *Dimmer) End() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return
	}
	d.enabled = false
	d.online = false
	d.backend.Apply(d)
	d.backend.End(d)
	dimmerLog.Info("%s dimmer disabled", d.variant)
}

// SetSemiPeriod configures the mains half-period in microseconds used
// for LUT lookups and, for phase-control dimmers, firing-delay
// derivation. 0 means unknown.
func (d *Dimmer) SetSemiPeriod(us uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.semiPeriodUS = us
}

// SemiPeriod returns the configured mains half-period in microseconds.
func (d *Dimmer) SemiPeriod() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.semiPeriodUS
}

// EnablePowerLUT toggles the non-linear power lookup table. Phase-control
// dimmers take only the enable flag: the LUT simply stays inert until a
// semi-period is set via SetSemiPeriod. Every other variant requires a
// semi-period at the point the LUT is enabled — pass it as semiPeriodUS,
// or omit it if SetSemiPeriod was already called; omitting it with none
// ever set is a programming error and panics, matching the assertion in
// the source this behavior is ported from.
func (d *Dimmer) EnablePowerLUT(enable bool, semiPeriodUS ...uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !enable {
		d.powerLUTEnabled = false
		return
	}
	if d.variant != PhaseControl {
		var sp uint16
		if len(semiPeriodUS) > 0 {
			sp = semiPeriodUS[0]
		}
		switch {
		case sp > 0:
			d.semiPeriodUS = sp
		case d.semiPeriodUS == 0:
			panic("core: EnablePowerLUT requires a semi-period to be set or provided")
		}
	}
	d.powerLUTEnabled = true
}

// IsPowerLUTEnabled reports whether the LUT is in use.
func (d *Dimmer) IsPowerLUTEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerLUTEnabled
}

// IsEnabled reports whether Begin succeeded and has not been followed by
// End.
func (d *Dimmer) IsEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// IsOnline reports whether firing is currently permitted. Phase-control
// dimmers additionally require a known semi-period whenever the power
// LUT is enabled, since the LUT lookup is meaningless without one.
func (d *Dimmer) IsOnline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isOnlineLocked()
}

func (d *Dimmer) isOnlineLocked() bool {
	if !d.enabled || !d.online {
		return false
	}
	if d.variant == PhaseControl && d.powerLUTEnabled && d.semiPeriodUS == 0 {
		return false
	}
	return true
}

// SetOnline flags whether the grid is present and firing is permitted.
// Going offline forces duty_cycle_fire to 0 and applies once; coming
// back online replays the last requested duty cycle.
func (d *Dimmer) SetOnline(online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online = online
	if !online {
		d.dutyCycleFire = 0
		if d.enabled {
			d.backend.Apply(d)
		}
		return
	}
	d.setDutyCycleLocked(d.dutyCycle)
}

// SetDutyCycleLimit sets the hard ceiling applied before anything else,
// clamped to [0,1], and re-applies the current duty cycle if it now
// exceeds the new limit.
func (d *Dimmer) SetDutyCycleLimit(limit float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dutyCycleLimit = clamp(limit, 0, 1)
	if d.dutyCycle > d.dutyCycleLimit {
		d.setDutyCycleLocked(d.dutyCycleLimit)
	}
}

// SetDutyCycleMin sets the remapped "0" of the duty-cycle window.
func (d *Dimmer) SetDutyCycleMin(min float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dutyCycleMin = clamp(min, 0, d.dutyCycleMax)
	d.setDutyCycleLocked(d.dutyCycle)
}

// SetDutyCycleMax sets the remapped "1" of the duty-cycle window.
func (d *Dimmer) SetDutyCycleMax(max float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dutyCycleMax = clamp(max, d.dutyCycleMin, 1)
	d.setDutyCycleLocked(d.dutyCycle)
}

func (d *Dimmer) DutyCycleLimit() float64 { d.mu.Lock(); defer d.mu.Unlock(); return d.dutyCycleLimit }
func (d *Dimmer) DutyCycleMin() float64   { d.mu.Lock(); defer d.mu.Unlock(); return d.dutyCycleMin }
func (d *Dimmer) DutyCycleMax() float64   { d.mu.Lock(); defer d.mu.Unlock(); return d.dutyCycleMax }

// On is shorthand for SetDutyCycle(1).
func (d *Dimmer) On() bool { return d.SetDutyCycle(1) }

// Off is shorthand for SetDutyCycle(0).
func (d *Dimmer) Off() bool { return d.SetDutyCycle(0) }

// IsOn reports whether the dimmer is online and requesting non-zero
// power.
func (d *Dimmer) IsOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isOnlineLocked() && d.dutyCycle > 0
}

// IsOff is the negation of IsOn.
func (d *Dimmer) IsOff() bool { return !d.IsOn() }

// IsOnAtFullPower reports whether the requested duty cycle has reached
// the configured maximum.
func (d *Dimmer) IsOnAtFullPower() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dutyCycle >= d.dutyCycleMax
}

// SetDutyCycle clamps x to [0, duty_cycle_limit], derives the remapped
// and fired duty cycles, and — if the dimmer is online — commits them to
// hardware via the backend. Returns whether that commit succeeded (or
// true trivially if the dimmer is not online: the request was still
// accepted, just not yet applied).
func (d *Dimmer) SetDutyCycle(x float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setDutyCycleLocked(x)
}

func (d *Dimmer) setDutyCycleLocked(x float64) bool {
	d.dutyCycle = clamp(x, 0, d.dutyCycleLimit)
	mapped := d.dutyCycleMapped()

	switch {
	case !d.powerLUTEnabled:
		d.dutyCycleFire = mapped
	case mapped == 0:
		d.dutyCycleFire = 0
	case mapped == 1:
		d.dutyCycleFire = 1
	case d.semiPeriodUS > 0:
		delay := lookupFiringDelay(mapped, d.semiPeriodUS)
		d.dutyCycleFire = 1 - float64(delay)/float64(d.semiPeriodUS)
	default:
		// LUT enabled but no semi-period yet known: only reachable for
		// PhaseControl dimmers (every other variant cannot enable the
		// LUT without one already set). Fall back to the linear mapping
		// until a semi-period arrives.
		d.dutyCycleFire = mapped
	}

	if !d.isOnlineLocked() {
		return true
	}
	return d.backend.Apply(d)
}

// DutyCycle returns the last value passed to SetDutyCycle.
func (d *Dimmer) DutyCycle() float64 { d.mu.Lock(); defer d.mu.Unlock(); return d.dutyCycle }

// DutyCycleMapped returns the duty cycle after the min/max linear remap.
func (d *Dimmer) DutyCycleMapped() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dutyCycleMapped()
}

func (d *Dimmer) dutyCycleMapped() float64 {
	return d.dutyCycleMin + d.dutyCycle*(d.dutyCycleMax-d.dutyCycleMin)
}

// DutyCycleFire returns the conduction ratio actually driven to
// hardware, or 0 if the dimmer is offline.
func (d *Dimmer) DutyCycleFire() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isOnlineLocked() {
		return 0
	}
	return d.dutyCycleFire
}

// dutyCycleFireRaw is used by backends (already holding no lock of their
// own — Apply is always called with d.mu held by the caller) to read the
// committed fire ratio without re-deriving online-ness.
func (d *Dimmer) dutyCycleFireRaw() float64 { return d.dutyCycleFire }

func clamp(v, low, high float64) float64 {
	switch {
	case v < low:
		return low
	case v > high:
		return high
	default:
		return v
	}
}

// CalculateHarmonics writes H1=100% plus the odd harmonics H3, H5, …
// into out[1:], for as many entries as len(out) allows. At the
// degenerate duty_cycle_fire endpoints the result is exact and
// variant-independent; otherwise it defers to the backend, which may
// leave entries as NaN if it has no harmonics model (e.g. Burst).
func (d *Dimmer) CalculateHarmonics(out []float64) bool {
	if len(out) == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	fire := d.dutyCycleFire
	if !d.isOnlineLocked() {
		fire = 0
	}

	switch fire {
	case 0:
		for i := range out {
			out[i] = 0
		}
		return true
	case 1:
		out[0] = 100
		for i := 1; i < len(out); i++ {
			out[i] = 0
		}
		return true
	default:
		return d.backend.CalculateHarmonics(d, out)
	}
}

// CalculateMetrics computes electrical metrics for a purely resistive
// load at the dimmer's current fired duty cycle. Fails if either input
// is non-positive or the dimmer is disabled — common to every variant,
// since the underlying physics only cares about the conduction ratio,
// not how it was produced.
func (d *Dimmer) CalculateMetrics(gridVoltage, loadResistance float64) (Metrics, error) {
	d.mu.Lock()
	enabled := d.enabled
	fire := d.dutyCycleFire
	if !d.isOnlineLocked() {
		fire = 0
	}
	d.mu.Unlock()

	if gridVoltage <= 0 || loadResistance <= 0 {
		return Metrics{}, fmt.Errorf("core: gridVoltage and loadResistance must be > 0")
	}
	if !enabled {
		return Metrics{}, fmt.Errorf("core: dimmer is disabled")
	}
	return resistiveLoadMetrics(fire, gridVoltage, loadResistance), nil
}

// Diagnostics is a JSON-shaped snapshot of a dimmer's state, suitable
// for periodic export by the application layer (core itself never
// marshals this; see cmd/dimmerd).
type Diagnostics struct {
	Type            string             `json:"type"`
	Enabled         bool               `json:"enabled"`
	Online          bool               `json:"online"`
	State           string             `json:"state"`
	SemiPeriod      uint16             `json:"semi_period"`
	DutyCycle       float64            `json:"duty_cycle"`
	DutyCycleMapped float64            `json:"duty_cycle_mapped"`
	DutyCycleFire   float64            `json:"duty_cycle_fire"`
	DutyCycleLimit  float64            `json:"duty_cycle_limit"`
	DutyCycleMin    float64            `json:"duty_cycle_min"`
	DutyCycleMax    float64            `json:"duty_cycle_max"`
	PowerLUT        bool               `json:"power_lut"`
	Harmonics       map[string]float64 `json:"harmonics,omitempty"`

	// Populated only for backends that expose it (phase_control).
	FiringDelay *uint16  `json:"dimmer_firing_delay,omitempty"`
	FiringAngle *float64 `json:"dimmer_firing_angle,omitempty"`
}

// firingDelayer is implemented by backends that can report a concrete
// firing delay and phase angle (currently only phaseControlBackend).
type firingDelayer interface {
	FiringDelay() uint16
}

// CollectDiagnostics builds a Diagnostics snapshot, including up to n
// odd harmonics (H1, H3, …). NaN harmonic entries are omitted from the
// map, matching the optional diagnostic export contract.
func (d *Dimmer) CollectDiagnostics(harmonicCount int) Diagnostics {
	d.mu.Lock()
	diag := Diagnostics{
		Type:            d.backend.TypeName(),
		Enabled:         d.enabled,
		Online:          d.online,
		SemiPeriod:      d.semiPeriodUS,
		DutyCycle:       d.dutyCycle,
		DutyCycleMapped: d.dutyCycleMapped(),
		DutyCycleFire:   d.dutyCycleFire,
		DutyCycleLimit:  d.dutyCycleLimit,
		DutyCycleMin:    d.dutyCycleMin,
		DutyCycleMax:    d.dutyCycleMax,
		PowerLUT:        d.powerLUTEnabled,
	}
	online := d.isOnlineLocked() && d.dutyCycle > 0
	d.mu.Unlock()

	if online {
		diag.State = "on"
	} else {
		diag.State = "off"
	}

	if harmonicCount > 0 {
		out := make([]float64, harmonicCount)
		if d.CalculateHarmonics(out) {
			diag.Harmonics = make(map[string]float64, harmonicCount)
			for i, v := range out {
				if math.IsNaN(v) {
					continue
				}
				diag.Harmonics[fmt.Sprintf("H%d", 2*i+1)] = v
			}
		}
	}

	if fd, ok := d.backend.(firingDelayer); ok {
		delay := fd.FiringDelay()
		diag.FiringDelay = &delay
		sp := diag.SemiPeriod
		angle := 180.0
		if delay < sp {
			angle = 180 * float64(delay) / float64(sp)
		}
		diag.FiringAngle = &angle
	}

	return diag
}
