package core

import (
	"math"
	"testing"

	"dimmer/hal"
	"dimmer/targets/sim"
)

func TestBurstDimmerDefaultWindow(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	d := NewBurstDimmer(NewFireEngine(), hal.Pin(1), 0)
	b := d.backend.(*burstBackend)
	if b.window != DefaultBurstWindow {
		t.Errorf("window = %d, want default %d", b.window, DefaultBurstWindow)
	}
}

// TestBurstSchedulerExactOnCount is the core equidistribution property
// (§4.5): over any run of window consecutive ticks at a constant duty
// cycle, exactly round(duty*window) of them must be on.
func TestBurstSchedulerExactOnCount(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	pin := hal.Pin(2)
	const window = 20
	d := NewBurstDimmer(NewFireEngine(), pin, window)
	d.Begin()
	d.SetOnline(true)

	testCases := []struct {
		duty   float64
		wantOn int
	}{
		{0, 0},
		{1, window},
		{0.5, 10},
		{0.25, 5},
		{0.3, 6}, // round(0.3*20) = 6
	}

	b := d.backend.(*burstBackend)
	for _, tc := range testCases {
		d.SetDutyCycle(tc.duty)
		onCount := 0
		for i := 0; i < window; i++ {
			b.Tick()
			if on, _ := gpio.GetPin(pin); on {
				onCount++
			}
		}
		if onCount != tc.wantOn {
			t.Errorf("duty=%v: %d ticks on out of %d, want %d", tc.duty, onCount, window, tc.wantOn)
		}
	}
}

// TestBurstSchedulerSpreadsEvenly checks that on-ticks aren't bunched at
// one end of the window: the longest gap between consecutive on-ticks
// should be close to window/target, not the whole window.
func TestBurstSchedulerSpreadsEvenly(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	pin := hal.Pin(3)
	const window = 20
	d := NewBurstDimmer(NewFireEngine(), pin, window)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0.25) // target 5 on out of 20: ideal spacing is 4

	b := d.backend.(*burstBackend)
	var positions []int
	for i := 0; i < window; i++ {
		b.Tick()
		if on, _ := gpio.GetPin(pin); on {
			positions = append(positions, i)
		}
	}
	if len(positions) != 5 {
		t.Fatalf("expected 5 on-slots, got %d: %v", len(positions), positions)
	}
	maxGap := 0
	for i := 1; i < len(positions); i++ {
		if gap := positions[i] - positions[i-1]; gap > maxGap {
			maxGap = gap
		}
	}
	if maxGap > 6 {
		t.Errorf("on-slots bunched: max gap %d between %v, expected close to the ideal spacing of 4", maxGap, positions)
	}
}

func TestBurstDimmerOfflineTargetsZero(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	pin := hal.Pin(4)
	d := NewBurstDimmer(NewFireEngine(), pin, 10)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(1)

	d.SetOnline(false)
	b := d.backend.(*burstBackend)
	if b.target != 0 {
		t.Errorf("target while offline = %d, want 0", b.target)
	}
}

func TestBurstDimmerEndDrivesLow(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	pin := hal.Pin(5)
	d := NewBurstDimmer(NewFireEngine(), pin, 10)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(1)

	b := d.backend.(*burstBackend)
	b.Tick()
	if on, _ := gpio.GetPin(pin); !on {
		t.Fatal("expected the pin to be on before End")
	}

	d.End()
	if on, _ := gpio.GetPin(pin); on {
		t.Error("expected End to drive the pin low")
	}
}

func TestBurstBackendHarmonicsAreFundamentalOnly(t *testing.T) {
	gpio := sim.NewGPIO(nil)
	hal.SetGPIODriver(gpio)

	d := NewBurstDimmer(NewFireEngine(), hal.Pin(6), 10)
	d.Begin()
	d.SetOnline(true)
	d.SetDutyCycle(0.5)

	out := make([]float64, 2)
	if !d.CalculateHarmonics(out) {
		t.Fatal("burst backend should report H1 even without a harmonics model")
	}
	if out[0] != 100 {
		t.Errorf("H1 = %v, want 100", out[0])
	}
	if !math.IsNaN(out[1]) {
		t.Errorf("H3 = %v, want NaN (no harmonics model beyond the fundamental)", out[1])
	}
}

// TestBurstDimmerDrivenByZeroCross exercises Tick through the public
// FireEngine.OnZeroCross path, the way cmd/dimmerd's mains loop drives a
// configured burst dimmer in practice: registration and ticking never go
// through anything but exported API.
func TestBurstDimmerDrivenByZeroCross(t *testing.T) {
	engine, gpio, _ := setupEngineTest()
	pin := hal.Pin(7)
	d := NewBurstDimmer(engine, pin, 4)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	d.SetOnline(true)
	d.SetDutyCycle(1) // every half-cycle should be driven on

	engine.OnZeroCross(0)
	if on, _ := gpio.GetPin(pin); !on {
		t.Error("burst dimmer should have been ticked on by OnZeroCross")
	}

	d.End()
	engine.OnZeroCross(0)
	if on, _ := gpio.GetPin(pin); on {
		t.Error("a deregistered burst dimmer should not be ticked by OnZeroCross")
	}
}
