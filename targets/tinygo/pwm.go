//go:build tinygo

package tinygo

import (
	"fmt"
	"machine"

	"dimmer/hal"
)

// PWM implements hal.PWMDriver over machine's PWM peripherals. It tracks
// which machine.PWM+channel a pin resolved to so SetDutyCycle/Disable
// don't have to re-resolve the peripheral on every call.
type PWM struct {
	channels map[hal.PWMPin]pwmChannel
}

type pwmChannel struct {
	pwm machine.PWM
	ch  uint8
	top uint32
}

// NewPWM returns a PWM driver with an empty channel table.
func NewPWM() *PWM {
	return &PWM{channels: make(map[hal.PWMPin]pwmChannel)}
}

func (p *PWM) ConfigureChannel(pin hal.PWMPin, frequencyHz uint32, resolutionBits uint8) (uint32, error) {
	mpin := machine.Pin(pin)
	pwm, ok := machine.PWMPeripheral(mpin)
	if !ok {
		return 0, fmt.Errorf("tinygo: pin %d has no PWM peripheral", pin)
	}
	if err := pwm.Configure(machine.PWMConfig{Period: uint64(1e9 / frequencyHz)}); err != nil {
		return 0, fmt.Errorf("tinygo: configure pwm: %w", err)
	}
	ch, err := pwm.Channel(mpin)
	if err != nil {
		return 0, fmt.Errorf("tinygo: pwm channel: %w", err)
	}
	top := pwm.Top()
	p.channels[pin] = pwmChannel{pwm: pwm, ch: ch, top: top}
	max := uint32(1)<<resolutionBits - 1
	if top < max {
		max = top
	}
	return max, nil
}

func (p *PWM) SetDutyCycle(pin hal.PWMPin, value uint32) error {
	c, ok := p.channels[pin]
	if !ok {
		return fmt.Errorf("tinygo: pwm pin %d not configured", pin)
	}
	c.pwm.Set(c.ch, value)
	return nil
}

func (p *PWM) Disable(pin hal.PWMPin) error {
	c, ok := p.channels[pin]
	if !ok {
		return nil
	}
	c.pwm.Set(c.ch, 0)
	return nil
}
