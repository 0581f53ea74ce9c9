//go:build !tinygo

package main

import (
	"time"

	"dimmer/core"
	"dimmer/hal"
	"dimmer/targets/sim"
)

var simTimer *sim.FireTimer

// installDrivers wires the hal singletons to the in-memory sim package,
// the way a plain `go run ./cmd/dimmerd` demo build runs without any
// attached silicon.
func installDrivers() {
	start := time.Now()
	now := func() uint64 { return uint64(time.Since(start).Microseconds()) }

	hal.SetGPIODriver(sim.NewGPIO(now))
	hal.SetPWMDriver(sim.NewPWM())
	hal.SetI2CDriver(sim.NewI2C())

	simTimer = sim.NewFireTimer()
	hal.SetFireTimer(simTimer)
}

// startMainsLoop drives the fake fire timer's 1MHz counter and the zero-
// cross interrupt off the wall clock, standing in for a mains-synced
// pulse analyzer and a free-running hardware counter. Real targets never
// need this: there, a GPIO interrupt and a hardware timer do the same
// job without a goroutine.
func startMainsLoop(engine *core.FireEngine, semiPeriodUS uint16) {
	const stepUS = 100

	go func() {
		zcAt := time.Now()
		for {
			time.Sleep(stepUS * time.Microsecond)
			simTimer.Advance(stepUS)

			if time.Since(zcAt) >= time.Duration(semiPeriodUS)*time.Microsecond {
				zcAt = time.Now()
				engine.OnZeroCross(0)
			}
		}
	}()
}
