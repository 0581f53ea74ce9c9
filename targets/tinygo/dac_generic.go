//go:build tinygo

package tinygo

import (
	"machine"

	"tinygo.org/x/drivers/mcp4725"

	"dimmer/hal"
)

// GenericDAC drives a bare MCP4725-style single-channel 12-bit I2C DAC
// through tinygo.org/x/drivers/mcp4725, for boards using a generic DAC
// breakout instead of a DFRobot GP8xxx module. It implements hal.I2CDriver
// so core.NewDACDimmer can drive it through the same register-oriented
// interface as the GP8xxx backend: WriteRegister's reg byte is ignored (the
// chip has no register map, just a 12-bit output word) and the payload is
// forwarded straight to the driver's fast-write command.
type GenericDAC struct {
	dev mcp4725.Device
}

// NewGenericDAC configures an MCP4725 on the board's first I2C bus.
func NewGenericDAC() *GenericDAC {
	dev := mcp4725.New(machine.I2C0)
	dev.Configure(mcp4725.Config{})
	return &GenericDAC{dev: dev}
}

func (d *GenericDAC) ConfigureBus(frequencyHz uint32) error {
	return machine.I2C0.Configure(machine.I2CConfig{Frequency: machine.Hertz(frequencyHz)})
}

func (d *GenericDAC) WriteRegister(addr hal.I2CAddress, reg uint8, data []byte) error {
	if len(data) != 2 {
		return nil
	}
	word := uint16(data[0]) | uint16(data[1])<<8
	return d.dev.FastWrite(word >> 4) // left-justified 16-bit word -> 12-bit DAC code
}

func (d *GenericDAC) ReadRegister(addr hal.I2CAddress, reg uint8, length int) ([]byte, error) {
	return make([]byte, length), nil
}
