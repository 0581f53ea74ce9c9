package hal

// PWMPin identifies a hardware pin capable of PWM output.
type PWMPin uint32

// PWMDriver is the abstract PWM interface the PWM backend (C5) uses to
// drive a 0-10V analog converter module from the MCU's own LEDC/PWM
// peripheral. Unlike GPIODriver it is only ever called from the
// foreground (apply() is computed and invoked outside ISR context, §9).
type PWMDriver interface {
	// ConfigureChannel configures a pin for hardware PWM output at the
	// given frequency and bit resolution. Returns the max countable
	// value for that resolution (2^resolution - 1), which may be smaller
	// than requested if the hardware cannot support it.
	ConfigureChannel(pin PWMPin, frequencyHz uint32, resolutionBits uint8) (maxValue uint32, err error)

	// SetDutyCycle writes a raw count in [0, maxValue] to the channel.
	SetDutyCycle(pin PWMPin, value uint32) error

	// Disable drives the channel to a constant low output (duty 0).
	Disable(pin PWMPin) error
}

var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("hal: PWM driver not configured")
	}
	return pwmDriver
}
