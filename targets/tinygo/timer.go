//go:build tinygo

package tinygo

import (
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 TIMER peripheral, base address and register offsets per the
// datasheet. The counter is a free-running 64-bit microsecond counter
// split across TIMEHW/TIMELW (write) and TIMERAWH/TIMERAWL (read); ALARM0
// paired with ARMED/INTR/INTE gives a single one-shot compare-and-fire
// channel, which is all the fire engine needs.
const (
	timerBase uint32 = 0x40054000

	timerTIMEHW   = timerBase + 0x00
	timerTIMELW   = timerBase + 0x04
	timerTIMERAWH = timerBase + 0x24
	timerTIMERAWL = timerBase + 0x28
	timerALARM0   = timerBase + 0x10
	timerARMED    = timerBase + 0x20
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	timerIRQ0 = 0 // TIMER_IRQ_0, channel for ALARM0
)

func timerReg(offset uint32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(offset)))
}

// FireTimer implements hal.FireTimer using the RP2040's TIMER peripheral
// directly, bypassing TinyGo's machine.Timer wrapper because the engine
// needs SetCount's wraparound behavior (§4.4.3), which machine.Timer
// doesn't expose.
type FireTimer struct {
	cb func()
}

// NewFireTimer returns a FireTimer bound to RP2040 ALARM0.
func NewFireTimer() *FireTimer {
	return &FireTimer{}
}

func (t *FireTimer) Start() error {
	t.SetCount(0)
	interrupt.New(timerIRQ0, t.handleIRQ).Enable()
	timerReg(timerINTE).SetBits(1 << 0)
	return nil
}

func (t *FireTimer) Stop() error {
	timerReg(timerINTE).ClearBits(1 << 0)
	return t.DisarmAlarm()
}

// SetCount writes the free-running counter. The datasheet requires the
// high word to be latched first via TIMEHW, then TIMELW commits both
// words atomically — writing low-then-high instead would let the counter
// tick between the two writes and corrupt the value.
func (t *FireTimer) SetCount(count uint64) error {
	timerReg(timerTIMEHW).Set(uint32(count >> 32))
	timerReg(timerTIMELW).Set(uint32(count))
	return nil
}

// Count reads the free-running counter. Reading high-low-high and
// retrying on mismatch avoids the rollover race inherent in a 64-bit
// counter backed by two 32-bit registers.
func (t *FireTimer) Count() (uint64, error) {
	for {
		hi1 := timerReg(timerTIMERAWH).Get()
		lo := timerReg(timerTIMERAWL).Get()
		hi2 := timerReg(timerTIMERAWH).Get()
		if hi1 == hi2 {
			return uint64(hi1)<<32 | uint64(lo), nil
		}
	}
}

func (t *FireTimer) ArmAlarm(target uint64) error {
	timerReg(timerALARM0).Set(uint32(target))
	return nil
}

func (t *FireTimer) DisarmAlarm() error {
	timerReg(timerARMED).SetBits(1 << 0)
	return nil
}

func (t *FireTimer) SetCallback(cb func()) {
	t.cb = cb
}

func (t *FireTimer) handleIRQ(intr interrupt.Interrupt) {
	timerReg(timerINTR).SetBits(1 << 0)
	if t.cb != nil {
		t.cb()
	}
}
