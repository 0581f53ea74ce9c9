// Package sim provides in-memory implementations of the hal interfaces,
// used by the core package's tests and by the host (non-TinyGo) build of
// cmd/dimmerd. It stands in for real silicon the way the teacher's
// `!tinygo` build of core/timer_go.go stood in for a hardware counter.
package sim

import (
	"fmt"
	"sort"
	"sync"

	"dimmer/hal"
)

// GPIO is a fake hal.GPIODriver that records pin state in memory.
type GPIO struct {
	mu    sync.Mutex
	level map[hal.Pin]bool
	out   map[hal.Pin]bool

	// Trace is appended to on every successful SetPin call, for tests
	// that assert on edge ordering/timing.
	Trace []PinEdge
	now   func() uint64
}

// PinEdge records one GPIO transition observed through SetPin.
type PinEdge struct {
	Pin   hal.Pin
	High  bool
	AtUS  uint64
}

// NewGPIO creates a fake GPIO bank. now, if provided, is used to time-stamp
// edges recorded in Trace (pass the same clock the FireTimer test double
// uses so traces line up with the firing schedule).
func NewGPIO(now func() uint64) *GPIO {
	return &GPIO{
		level: make(map[hal.Pin]bool),
		out:   make(map[hal.Pin]bool),
		now:   now,
	}
}

func (g *GPIO) ConfigureOutput(pin hal.Pin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.out[pin] = true
	return nil
}

func (g *GPIO) SetPin(pin hal.Pin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.out[pin] {
		return fmt.Errorf("sim: pin %d not configured as output", pin)
	}
	g.level[pin] = value
	var t uint64
	if g.now != nil {
		t = g.now()
	}
	g.Trace = append(g.Trace, PinEdge{Pin: pin, High: value, AtUS: t})
	return nil
}

func (g *GPIO) GetPin(pin hal.Pin) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level[pin], nil
}

// PWM is a fake hal.PWMDriver.
type PWM struct {
	mu        sync.Mutex
	maxValue  map[hal.PWMPin]uint32
	dutyValue map[hal.PWMPin]uint32
}

func NewPWM() *PWM {
	return &PWM{maxValue: make(map[hal.PWMPin]uint32), dutyValue: make(map[hal.PWMPin]uint32)}
}

func (p *PWM) ConfigureChannel(pin hal.PWMPin, frequencyHz uint32, resolutionBits uint8) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	max := uint32(1)<<resolutionBits - 1
	p.maxValue[pin] = max
	return max, nil
}

func (p *PWM) SetDutyCycle(pin hal.PWMPin, value uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	max, ok := p.maxValue[pin]
	if !ok {
		return fmt.Errorf("sim: pwm pin %d not configured", pin)
	}
	if value > max {
		return fmt.Errorf("sim: pwm value %d exceeds max %d", value, max)
	}
	p.dutyValue[pin] = value
	return nil
}

func (p *PWM) Disable(pin hal.PWMPin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dutyValue[pin] = 0
	return nil
}

// Value returns the last duty value written to pin, for test assertions.
func (p *PWM) Value(pin hal.PWMPin) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dutyValue[pin]
}

// I2C is a fake hal.I2CDriver that records writes per (address, register).
type I2C struct {
	mu    sync.Mutex
	regs  map[i2cKey][]byte
	ready bool
}

type i2cKey struct {
	addr hal.I2CAddress
	reg  uint8
}

func NewI2C() *I2C {
	return &I2C{regs: make(map[i2cKey][]byte)}
}

func (b *I2C) ConfigureBus(frequencyHz uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = true
	return nil
}

func (b *I2C) WriteRegister(addr hal.I2CAddress, reg uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return fmt.Errorf("sim: i2c bus not configured")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.regs[i2cKey{addr, reg}] = cp
	return nil
}

func (b *I2C) ReadRegister(addr hal.I2CAddress, reg uint8, length int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.regs[i2cKey{addr, reg}]
	if !ok {
		return make([]byte, length), nil
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// LastWrite returns the most recent bytes written to (addr, reg), for test
// assertions.
func (b *I2C) LastWrite(addr hal.I2CAddress, reg uint8) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[i2cKey{addr, reg}]
}

// FireTimer is a fake hal.FireTimer with a manually-advanced clock,
// letting tests drive the zero-cross/alarm ISR pair deterministically
// instead of waiting on a real 1MHz hardware counter.
type FireTimer struct {
	mu       sync.Mutex
	running  bool
	count    uint64
	alarmSet bool
	alarm    uint64
	cb       func()
}

func NewFireTimer() *FireTimer {
	return &FireTimer{}
}

func (t *FireTimer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.count = 0
	return nil
}

func (t *FireTimer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.alarmSet = false
	return nil
}

func (t *FireTimer) SetCount(count uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = count
	return nil
}

func (t *FireTimer) Count() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count, nil
}

func (t *FireTimer) ArmAlarm(target uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alarmSet = true
	t.alarm = target
	return nil
}

func (t *FireTimer) DisarmAlarm() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alarmSet = false
	return nil
}

func (t *FireTimer) SetCallback(cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

// Running reports whether Start has been called without a matching Stop,
// for tests asserting the engine starts/stops the timer lazily.
func (t *FireTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Advance moves the simulated clock forward by deltaUS microseconds,
// firing the armed alarm callback (at most once, matching the real
// one-shot hardware alarm) if the counter crosses it. Intended for tests
// only — it calls the callback synchronously on the calling goroutine,
// exactly as a real ISR would run synchronously on the interrupt line.
func (t *FireTimer) Advance(deltaUS uint64) {
	t.mu.Lock()
	start := t.count
	end := start + deltaUS
	t.count = end
	fire := t.alarmSet && t.alarm > start && t.alarm <= end
	if fire {
		t.alarmSet = false
	}
	cb := t.cb
	t.mu.Unlock()
	if fire && cb != nil {
		cb()
	}
}

// PendingAlarms is a debug helper for multi-dimmer tests: it returns the
// currently armed alarm targets in ascending order (there is only ever
// one real hardware alarm, so this always has length 0 or 1; kept as a
// slice for symmetry with assertions written against earlier drafts).
func (t *FireTimer) PendingAlarms() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.alarmSet {
		return nil
	}
	out := []uint64{t.alarm}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
