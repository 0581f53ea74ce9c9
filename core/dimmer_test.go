package core

import (
	"testing"
)

// fakeBackend is a minimal Backend used to exercise Dimmer in isolation,
// without any hal dependency.
type fakeBackend struct {
	began, ended bool
	applies      int
	lastFire     float64
	lastOnline   bool
	applyOK      bool
	harmonicsOK  bool
	beginErr     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{applyOK: true}
}

func (f *fakeBackend) TypeName() string { return "fake" }

func (f *fakeBackend) Begin(d *Dimmer) error {
	f.began = true
	return f.beginErr
}

func (f *fakeBackend) End(d *Dimmer) { f.ended = true }

func (f *fakeBackend) Apply(d *Dimmer) bool {
	f.applies++
	f.lastFire = d.dutyCycleFireRaw()
	f.lastOnline = d.online
	return f.applyOK
}

func (f *fakeBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	return f.harmonicsOK
}

func TestDimmerBeginIdempotent(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := d.Begin(); err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if fb.began != true {
		t.Fatal("backend Begin not called")
	}
	// backend.Begin must not be called twice
	fb.began = false
	if err := d.Begin(); err != nil {
		t.Fatalf("third Begin: %v", err)
	}
	if fb.began {
		t.Error("Begin re-invoked backend.Begin on an already-enabled dimmer")
	}
}

func TestDimmerEndIdempotentAndOffline(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0.7)

	d.End()
	if !fb.ended {
		t.Error("backend.End not called")
	}
	if d.IsEnabled() {
		t.Error("dimmer still enabled after End")
	}
	if d.IsOnline() {
		t.Error("dimmer still online after End")
	}

	fb.ended = false
	d.End() // idempotent
	if fb.ended {
		t.Error("End re-invoked backend.End on an already-disabled dimmer")
	}
}

func TestDimmerSetDutyCycleClampsToLimit(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycleLimit(0.6)

	d.SetDutyCycle(1.0)
	if got := d.DutyCycle(); got != 0.6 {
		t.Errorf("DutyCycle = %v, want 0.6 (clamped to limit)", got)
	}

	d.SetDutyCycle(-0.2)
	if got := d.DutyCycle(); got != 0 {
		t.Errorf("DutyCycle = %v, want 0 (clamped to 0)", got)
	}
}

func TestDimmerDutyCycleMinMaxRemap(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycleMin(0.2)
	d.SetDutyCycleMax(0.8)

	d.SetDutyCycle(0)
	if got := d.DutyCycleMapped(); got != 0.2 {
		t.Errorf("mapped(0) = %v, want 0.2", got)
	}
	d.SetDutyCycle(1)
	if got := d.DutyCycleMapped(); got != 0.8 {
		t.Errorf("mapped(1) = %v, want 0.8", got)
	}
	d.SetDutyCycle(0.5)
	if got := d.DutyCycleMapped(); !approxEqual(got, 0.5, 1e-9) {
		t.Errorf("mapped(0.5) = %v, want 0.5", got)
	}
}

func TestDimmerOfflineForcesFireZero(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0.9)
	if d.DutyCycleFire() == 0 {
		t.Fatal("expected non-zero fire while online")
	}

	d.SetOnline(false)
	if got := d.DutyCycleFire(); got != 0 {
		t.Errorf("DutyCycleFire while offline = %v, want 0", got)
	}
	if fb.lastFire != 0 {
		t.Errorf("backend should have been applied with fire=0 on going offline, got %v", fb.lastFire)
	}

	// coming back online replays the last requested duty cycle
	d.SetOnline(true)
	if got := d.DutyCycleFire(); got == 0 {
		t.Error("expected duty cycle to be replayed after coming back online")
	}
}

func TestDimmerOnOff(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)

	d.On()
	if !d.IsOn() || d.IsOff() {
		t.Error("On() did not turn the dimmer on")
	}
	if !d.IsOnAtFullPower() {
		t.Error("On() should reach full power")
	}

	d.Off()
	if d.IsOn() || !d.IsOff() {
		t.Error("Off() did not turn the dimmer off")
	}
}

func TestDimmerPowerLUTRequiresSemiPeriodForNonPhaseControl(t *testing.T) {
	fb := newFakeBackend()
	d := New(PWM, fb)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic enabling the power LUT with no semi-period ever set")
		}
	}()
	d.EnablePowerLUT(true)
}

func TestDimmerPowerLUTPhaseControlNoAssertion(t *testing.T) {
	fb := newFakeBackend()
	d := New(PhaseControl, fb)
	// PhaseControl dimmers may enable the LUT before a semi-period exists;
	// it just stays inert (isOnlineLocked requires one before firing).
	d.EnablePowerLUT(true)
	if !d.IsPowerLUTEnabled() {
		t.Error("expected power LUT enabled")
	}
	if d.IsOnline() {
		t.Error("phase-control dimmer with LUT enabled but no semi-period must not report online")
	}
}

func TestDimmerPowerLUTFiringDelayMapping(t *testing.T) {
	fb := newFakeBackend()
	d := New(PhaseControl, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetSemiPeriod(10000)
	d.EnablePowerLUT(true)

	d.SetDutyCycle(0.5)
	// mapped duty is 0.5 here (no min/max remap); lookupFiringDelay(0.5,
	// 10000) = 4999 per the LUT test, so fire = 1 - 4999/10000.
	want := 1 - 4999.0/10000.0
	if got := d.DutyCycleFire(); !approxEqual(got, want, 1e-9) {
		t.Errorf("DutyCycleFire = %v, want %v", got, want)
	}
}

func TestDimmerPowerLUTBoundaries(t *testing.T) {
	fb := newFakeBackend()
	d := New(PhaseControl, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetSemiPeriod(10000)
	d.EnablePowerLUT(true)

	d.SetDutyCycle(0)
	if got := d.DutyCycleFire(); got != 0 {
		t.Errorf("fire at duty=0 = %v, want 0", got)
	}
	d.SetDutyCycle(1)
	if got := d.DutyCycleFire(); got != 1 {
		t.Errorf("fire at duty=1 = %v, want 1", got)
	}
}

func TestDimmerCalculateHarmonicsDegenerateCases(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)

	d.SetDutyCycle(0)
	out := make([]float64, 3)
	d.CalculateHarmonics(out)
	for i, v := range out {
		if v != 0 {
			t.Errorf("fire=0: out[%d] = %v, want 0", i, v)
		}
	}

	d.SetDutyCycle(1)
	d.CalculateHarmonics(out)
	if out[0] != 100 {
		t.Errorf("fire=1: H1 = %v, want 100", out[0])
	}
	for i, v := range out[1:] {
		if v != 0 {
			t.Errorf("fire=1: out[%d] = %v, want 0", i+1, v)
		}
	}
}

func TestDimmerCalculateHarmonicsDelegatesToBackend(t *testing.T) {
	fb := newFakeBackend()
	fb.harmonicsOK = true
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0.5)

	out := make([]float64, 2)
	if !d.CalculateHarmonics(out) {
		t.Error("expected backend harmonics call to succeed")
	}
}

func TestDimmerCalculateMetricsRejectsBadInputs(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()

	if _, err := d.CalculateMetrics(0, 50); err == nil {
		t.Error("expected error for non-positive voltage")
	}
	if _, err := d.CalculateMetrics(230, 0); err == nil {
		t.Error("expected error for non-positive resistance")
	}

	d.End()
	if _, err := d.CalculateMetrics(230, 50); err == nil {
		t.Error("expected error for a disabled dimmer")
	}
}

func TestDimmerCollectDiagnosticsHarmonicsMapAndBackendFailure(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0) // degenerate: all harmonics 0, none NaN

	diag := d.CollectDiagnostics(3)
	if len(diag.Harmonics) != 3 {
		t.Errorf("expected 3 harmonic entries, got %d", len(diag.Harmonics))
	}

	fb.harmonicsOK = false
	d.SetDutyCycle(0.5) // now delegates to backend, which reports failure -> no map
	diag = d.CollectDiagnostics(3)
	if diag.Harmonics != nil {
		t.Errorf("expected nil harmonics map on backend failure, got %v", diag.Harmonics)
	}
}

func TestDimmerCollectDiagnosticsFiringDelayOnlyForPhaseControl(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()

	diag := d.CollectDiagnostics(0)
	if diag.FiringDelay != nil || diag.FiringAngle != nil {
		t.Error("virtual backend should not populate firing delay/angle diagnostics")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, low, high, want float64 }{
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0.5, 0, 1, 0.5},
	}
	for _, c := range cases {
		if got := clamp(c.v, c.low, c.high); got != c.want {
			t.Errorf("clamp(%v, %v, %v) = %v, want %v", c.v, c.low, c.high, got, c.want)
		}
	}
}

func TestDimmerVariantString(t *testing.T) {
	cases := map[Variant]string{
		PhaseControl: "phase_control",
		PWM:          "pwm",
		DAC:          "dac_i2c",
		Burst:        "burst",
		Virtual:      "virtual",
		Variant(99):  "unknown",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("Variant(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func TestDimmerApplyFailureReturnedFromSetDutyCycle(t *testing.T) {
	fb := newFakeBackend()
	fb.applyOK = false
	d := New(Virtual, fb)
	d.Begin()
	d.SetOnline(true)

	if d.SetDutyCycle(0.5) {
		t.Error("expected SetDutyCycle to surface a backend Apply failure")
	}
}

func TestDimmerSetDutyCycleWhileOfflineIsAcceptedButNotApplied(t *testing.T) {
	fb := newFakeBackend()
	d := New(Virtual, fb)
	d.Begin()
	// never called SetOnline(true)

	if !d.SetDutyCycle(0.5) {
		t.Error("a duty-cycle request while offline should be accepted, just not yet fired")
	}
	if fb.applies != 0 {
		t.Errorf("backend.Apply should not run while offline, got %d calls", fb.applies)
	}
	if d.DutyCycle() != 0.5 {
		t.Errorf("DutyCycle = %v, want 0.5 even though offline", d.DutyCycle())
	}
}
