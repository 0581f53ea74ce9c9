package core

import (
	"fmt"

	"dimmer/hal"
)

// DFRobotSKU identifies one of the supported I2C voltage-output DAC
// modules: three DFRobot GP8xxx SKUs plus a generic MCP4725.
type DFRobotSKU int

const (
	DFRobotUnknown DFRobotSKU = iota
	// DFR1071GP8211S is a 1-channel, 15-bit, 0-5V/0-10V DAC.
	DFR1071GP8211S
	// DFR1073GP8413 is a 2-channel, 15-bit, 0-5V/0-10V DAC.
	DFR1073GP8413
	// DFR0971GP8403 is a 2-channel, 12-bit, 0-5V/0-10V DAC.
	DFR0971GP8403
	// GenericMCP4725 is a bare single-channel 12-bit DAC with no register
	// map of its own (e.g. a generic MCP4725 breakout driven through
	// targets/tinygo.GenericDAC rather than a DFRobot module). It skips
	// the output-range register write in Begin since the chip has none.
	GenericMCP4725
)

// ResolutionBits returns the DAC's output resolution in bits, or 0 for
// DFRobotUnknown.
func (s DFRobotSKU) ResolutionBits() uint8 {
	switch s {
	case DFR1071GP8211S, DFR1073GP8413:
		return 15
	case DFR0971GP8403, GenericMCP4725:
		return 12
	default:
		return 0
	}
}

// DFRobotOutputRange selects the module's analog output span.
type DFRobotOutputRange uint8

const (
	DFRobotRange0to5V  DFRobotOutputRange = 0x00
	DFRobotRange0to10V DFRobotOutputRange = 0x11
)

// GP8xxx register addresses used by this backend (a reconstruction of the
// DFRobot protocol, see DESIGN.md).
const (
	gp8xxxRegOutput     = 0x02
	gp8xxxRegRangeSet   = 0x01
	gp8xxxRegChannelAll = 0x02
)

// dacBackend drives a DFRobot GP8xxx I2C voltage-output DAC. Like the
// PWM backend, there is no zero-cross coupling: apply() just converts
// the committed duty cycle to a raw DAC code and writes it.
type dacBackend struct {
	address hal.I2CAddress
	sku     DFRobotSKU
	output  DFRobotOutputRange
	channel uint8

	resolutionBits uint8
}

// NewDACDimmer creates a dimmer that drives an I²C voltage-output DAC of
// the given SKU, at address, with the given output voltage range. channel
// is stored but not used: every duty write goes to the single
// gp8xxxRegOutput register, whatever the channel.
func NewDACDimmer(address hal.I2CAddress, sku DFRobotSKU, channel uint8, output DFRobotOutputRange) *Dimmer {
	b := &dacBackend{address: address, sku: sku, channel: channel, output: output}
	return New(DAC, b)
}

func (b *dacBackend) TypeName() string { return "dac_i2c" }

func (b *dacBackend) Begin(d *Dimmer) error {
	if b.sku == DFRobotUnknown {
		return fmt.Errorf("core: dac dimmer requires a known DFRobot SKU")
	}
	b.resolutionBits = b.sku.ResolutionBits()

	i2c := hal.MustI2C()
	if err := i2c.ConfigureBus(100_000); err != nil {
		return fmt.Errorf("core: configure i2c bus: %w", err)
	}
	if b.sku == GenericMCP4725 {
		return nil // no register map: output range is fixed by the board's reference voltage
	}
	if err := i2c.WriteRegister(b.address, gp8xxxRegRangeSet, []byte{byte(b.output)}); err != nil {
		return fmt.Errorf("core: set dac output range: %w", err)
	}
	return nil
}

func (b *dacBackend) End(d *Dimmer) {
	hal.MustI2C().WriteRegister(b.address, gp8xxxRegOutput, b.encode(0))
}

func (b *dacBackend) Apply(d *Dimmer) bool {
	i2c := hal.MustI2C()
	var fire float64
	if d.online {
		fire = d.dutyCycleFireRaw()
	}
	code := uint32(fire*float64((uint32(1)<<b.resolutionBits)-1) + 0.5)
	return i2c.WriteRegister(b.address, gp8xxxRegOutput, b.encode(code)) == nil
}

// encode packs a raw DAC code as little-endian, left-justified into the
// GP8xxx's 16-bit output register: the chip always expects a 16-bit
// word regardless of the module's actual resolution, with unused low
// bits set to 0.
func (b *dacBackend) encode(code uint32) []byte {
	word := code << (16 - b.resolutionBits)
	return []byte{byte(word), byte(word >> 8)}
}

func (b *dacBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	return phaseControlHarmonics(d.dutyCycleFireRaw(), out)
}
