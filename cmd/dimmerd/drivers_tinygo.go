//go:build tinygo

package main

import (
	"dimmer/core"
	"dimmer/hal"
	tinygohal "dimmer/targets/tinygo"
)

// installDrivers wires the hal singletons to real silicon via TinyGo's
// machine package.
func installDrivers() {
	hal.SetGPIODriver(tinygohal.GPIO{})
	hal.SetPWMDriver(tinygohal.NewPWM())
	hal.SetI2CDriver(tinygohal.NewI2C())
	hal.SetFireTimer(tinygohal.NewFireTimer())
}

// startMainsLoop is a no-op on real targets. This build attaches no
// zero-cross interrupt, so nothing in it calls engine.OnZeroCross; once
// the engine arms an alarm, the hardware timer's alarm compare drives
// fireTimerISR without any goroutine polling it.
func startMainsLoop(engine *core.FireEngine, semiPeriodUS uint16) {}
