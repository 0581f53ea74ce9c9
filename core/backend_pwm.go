package core

import (
	"fmt"

	"dimmer/hal"
)

// pwmBackend drives a PWM channel into a downstream analog converter
// (e.g. a 0-10V regulator module). It has no zero-cross coupling: the
// converter itself phase-controls the load, so the same harmonics and
// metrics formulas as the thyristor backend apply (§4.5).
type pwmBackend struct {
	pin            hal.PWMPin
	frequencyHz    uint32
	resolutionBits uint8
	maxValue       uint32
}

// NewPWMDimmer creates a dimmer that drives pin via the MCU's hardware
// PWM peripheral at the given frequency and bit resolution.
func NewPWMDimmer(pin hal.PWMPin, frequencyHz uint32, resolutionBits uint8) *Dimmer {
	if frequencyHz == 0 {
		frequencyHz = 1000
	}
	if resolutionBits == 0 {
		resolutionBits = 12
	}
	b := &pwmBackend{pin: pin, frequencyHz: frequencyHz, resolutionBits: resolutionBits}
	return New(PWM, b)
}

func (b *pwmBackend) TypeName() string { return "pwm" }

func (b *pwmBackend) Begin(d *Dimmer) error {
	max, err := hal.MustPWM().ConfigureChannel(b.pin, b.frequencyHz, b.resolutionBits)
	if err != nil {
		return fmt.Errorf("core: configure pwm channel: %w", err)
	}
	b.maxValue = max
	return nil
}

func (b *pwmBackend) End(d *Dimmer) {
	hal.MustPWM().Disable(b.pin)
}

func (b *pwmBackend) Apply(d *Dimmer) bool {
	pwm := hal.MustPWM()
	if !d.online {
		return pwm.Disable(b.pin) == nil
	}
	value := uint32(d.dutyCycleFireRaw()*float64(b.maxValue) + 0.5)
	return pwm.SetDutyCycle(b.pin, value) == nil
}

func (b *pwmBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	return phaseControlHarmonics(d.dutyCycleFireRaw(), out)
}
