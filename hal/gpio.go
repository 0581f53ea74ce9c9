// Package hal defines the hardware interfaces the dimmer core code depends
// on, and the "Must" singleton-injection pattern used to bind them to a
// concrete target at program start.
//
// The fire engine's ISR paths call only FireTimer (see timer.go) and
// GPIODriver.SetPin, so a target's implementation of those two must be
// interrupt-safe; I2CDriver and PWMDriver are only used from the
// foreground.
package hal

// Pin identifies a hardware GPIO pin number.
type Pin uint32

// GPIODriver is the abstract GPIO interface the dimmer backends use to
// drive a TRIAC/SSR gate or a digital enable line.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin Pin) error

	// SetPin sets the pin to high (true) or low (false). Implementations
	// used by the phase-control firing engine MUST be callable from
	// interrupt context (no allocation, no blocking).
	SetPin(pin Pin, value bool) error

	// GetPin reads back the current pin state.
	GetPin(pin Pin) (bool, error)
}

// Global singleton used by core code, following the teacher's injection
// pattern: target-specific init code calls SetGPIODriver once at startup,
// and everything else calls MustGPIO().
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("hal: GPIO driver not configured")
	}
	return gpioDriver
}
