//go:build tinygo

// Package tinygo wires the hal interfaces to real silicon via TinyGo's
// machine package, the way the teacher's targets/rp2040 package did for
// the stepper GPIO/PWM/I2C HAL.
package tinygo

import (
	"machine"

	"dimmer/hal"
)

// GPIO implements hal.GPIODriver over machine.Pin.
type GPIO struct{}

func (GPIO) ConfigureOutput(pin hal.Pin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (GPIO) SetPin(pin hal.Pin, value bool) error {
	machine.Pin(pin).Set(value)
	return nil
}

func (GPIO) GetPin(pin hal.Pin) (bool, error) {
	return machine.Pin(pin).Get(), nil
}
