//go:build tinygo

package tinygo

import (
	"machine"

	"dimmer/hal"
)

// I2C implements hal.I2CDriver over machine.I2C0.
type I2C struct {
	bus *machine.I2C
}

// NewI2C returns an I2C driver bound to the board's first I2C bus.
func NewI2C() *I2C {
	return &I2C{bus: machine.I2C0}
}

func (d *I2C) ConfigureBus(frequencyHz uint32) error {
	return d.bus.Configure(machine.I2CConfig{Frequency: machine.Hertz(frequencyHz)})
}

func (d *I2C) WriteRegister(addr hal.I2CAddress, reg uint8, data []byte) error {
	buf := make([]byte, 1+len(data))
	buf[0] = reg
	copy(buf[1:], data)
	return d.bus.Tx(uint16(addr), buf, nil)
}

func (d *I2C) ReadRegister(addr hal.I2CAddress, reg uint8, length int) ([]byte, error) {
	out := make([]byte, length)
	if err := d.bus.Tx(uint16(addr), []byte{reg}, out); err != nil {
		return nil, err
	}
	return out, nil
}
