package core

import (
	"fmt"
	"sync"

	"dimmer/dimmerlog"
	"dimmer/hal"
)

var engineLog = dimmerlog.New("fire_engine")

// sentinelDelay marks a registry slot that will not fire this half-cycle
// (dimmer off, or already fired and waiting for the next zero-cross).
const sentinelDelay = 0xffff

// PhaseDelayMinUS is the hardware safety minimum firing delay: below it,
// the TRIAC gate may not see enough current to latch. It is a physical
// floor, not a calibration knob.
const PhaseDelayMinUS = 90

// maxRegisteredDimmers bounds the fire engine's registry. It is a fixed
// array rather than a slice so the zero-cross and alarm ISRs walk it
// without allocating; each registration allocates only its own
// phaseControlState.
const maxRegisteredDimmers = 16

// phaseControlState is the per-dimmer record the zero-cross and alarm
// ISRs read and mutate. It is intentionally the only data those ISRs
// touch: no Dimmer, no Go interface dispatch, just three plain fields.
type phaseControlState struct {
	pin hal.Pin

	// delay is the latched firing delay in microseconds, computed in the
	// foreground by phaseControlBackend.Apply. sentinelDelay means "do
	// not fire"; 0 means "stay on the whole half-cycle".
	delay uint16

	// alarmCount is working state owned exclusively by the ISR pair
	// between one zero-cross and the next.
	alarmCount uint16
}

// Ticker is driven once per mains half-cycle from OnZeroCross, for
// backends that don't need microsecond firing delay — just to know a
// half-cycle has elapsed (the burst/cycle-stealing backend, §12.5).
type Ticker interface {
	Tick() error
}

// FireEngine is the process-wide phase-control firing engine: the
// dimmer registry, the zero-cross ISR, and the alarm-timer ISR. One
// instance is shared by every PhaseControl dimmer in a program, and
// also drives any registered Tickers off the same zero-cross signal.
type FireEngine struct {
	lock hal.Lock

	mu           sync.Mutex
	slots        [maxRegisteredDimmers]*phaseControlState
	backends     [maxRegisteredDimmers]*phaseControlBackend
	count        int
	semiPeriodUS uint16

	tickers [maxRegisteredDimmers]Ticker

	insideISR bool
}

// NewFireEngine creates an idle fire engine. The underlying fire timer
// is started lazily on first registration and stopped when the last
// dimmer deregisters.
func NewFireEngine() *FireEngine {
	return &FireEngine{}
}

// SemiPeriod returns the engine-wide mains half-period in microseconds.
func (e *FireEngine) SemiPeriod() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.semiPeriodUS
}

// SetSemiPeriod updates the engine-wide mains half-period and propagates
// it to every currently registered dimmer (new registrations pick up
// the current value automatically in Begin).
func (e *FireEngine) SetSemiPeriod(us uint16) {
	e.mu.Lock()
	e.semiPeriodUS = us
	affected := make([]*Dimmer, 0, e.count)
	for _, b := range e.backends {
		if b != nil {
			affected = append(affected, b.dim)
		}
	}
	e.mu.Unlock()

	for _, d := range affected {
		d.SetSemiPeriod(us)
	}
}

func (e *FireEngine) register(b *phaseControlBackend) (*phaseControlState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot := -1
	for i, s := range e.slots {
		if s == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		err := fmt.Errorf("core: fire engine registry full (max %d dimmers)", maxRegisteredDimmers)
		engineLog.Error("register pin %d: %v", b.pin, err)
		return nil, err
	}

	if e.count == 0 {
		timer := hal.MustFireTimer()
		timer.SetCallback(e.fireTimerISR)
		if err := timer.Start(); err != nil {
			engineLog.Error("start fire timer: %v", err)
			return nil, fmt.Errorf("core: start fire timer: %w", err)
		}
		engineLog.Info("fire timer started")
	}

	state := &phaseControlState{pin: b.pin, delay: sentinelDelay, alarmCount: sentinelDelay}
	e.lock.Acquire()
	e.slots[slot] = state
	e.backends[slot] = b
	e.lock.Release()
	e.count++
	engineLog.Info("registered pin %d, slot %d/%d in use", b.pin, e.count, maxRegisteredDimmers)
	return state, nil
}

func (e *FireEngine) unregister(b *phaseControlBackend) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lock.Acquire()
	for i, bb := range e.backends {
		if bb == b {
			e.slots[i] = nil
			e.backends[i] = nil
			e.count--
		}
	}
	e.lock.Release()

	engineLog.Info("unregistered pin %d, %d slots in use", b.pin, e.count)
	if e.count == 0 {
		hal.MustFireTimer().Stop()
		engineLog.Info("fire timer stopped")
	}
}

// registerTicker adds t to the half-cycle ticker registry. Unlike
// register, there's no capacity error to report: a full registry just
// silently drops the ticker, matching the fixed-size, no-allocation
// registry style but without a hard dimmer-count contract to break.
func (e *FireEngine) registerTicker(t Ticker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lock.Acquire()
	defer e.lock.Release()
	for i, s := range e.tickers {
		if s == nil {
			e.tickers[i] = t
			return
		}
	}
}

func (e *FireEngine) unregisterTicker(t Ticker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lock.Acquire()
	defer e.lock.Release()
	for i, s := range e.tickers {
		if s == t {
			e.tickers[i] = nil
		}
	}
}

// tickAll drives every registered Ticker for one elapsed half-cycle.
// Called from OnZeroCross, so it must be interrupt-context safe: no
// logging, no allocation.
func (e *FireEngine) tickAll() {
	e.lock.Acquire()
	tickers := e.tickers
	e.lock.Release()
	for _, t := range tickers {
		if t != nil {
			t.Tick()
		}
	}
}

// OnZeroCross is the zero-cross interrupt entry point (§4.4.3). delayUntilZeroUS
// is the number of microseconds between this call and the true mains
// zero crossing, as reported by an external pulse analyzer. It must be
// safe to call from interrupt context.
func (e *FireEngine) OnZeroCross(delayUntilZeroUS uint16) {
	timer := hal.MustFireTimer()
	gpio := hal.MustGPIO()

	// Reset t=0 at ISR entry immediately, before anything else can delay
	// us, so every subsequent count read is relative to this instant.
	if timer.SetCount(0) != nil {
		return
	}

	e.tickAll()

	nextAlarm := uint16(sentinelDelay)

	e.lock.Acquire()
	for _, s := range e.slots {
		if s == nil {
			continue
		}
		if s.delay != 0 {
			gpio.SetPin(s.pin, false)
			alarm := s.delay
			if alarm != sentinelDelay && alarm < PhaseDelayMinUS {
				alarm = PhaseDelayMinUS
			}
			s.alarmCount = alarm
			if alarm < nextAlarm {
				nextAlarm = alarm
			}
		} else {
			gpio.SetPin(s.pin, true)
			s.alarmCount = sentinelDelay
		}
	}
	e.lock.Release()

	elapsed, err := timer.Count()
	if err != nil {
		return
	}
	delayUntilZero := uint64(delayUntilZeroUS)

	if elapsed >= delayUntilZero {
		// We were slow enough that the true zero-crossing has already
		// passed by the time we finished walking the registry.
		elapsedPostZC := elapsed - delayUntilZero
		if elapsedPostZC <= uint64(nextAlarm) {
			if timer.SetCount(elapsedPostZC) == nil {
				e.fireTimerISR()
			}
		}
		// Otherwise: too late. Skip this half-cycle rather than fire late
		// and cause visible flicker.
		return
	}

	// Normal case: the zero-crossing is still ahead of us. Wind the
	// counter back so it reaches 0 exactly at the true crossing, then
	// arm the alarm for whichever dimmer fires first after that.
	diff := delayUntilZero - elapsed
	timer.SetCount(uint64(-int64(diff)))
	if nextAlarm != sentinelDelay {
		timer.ArmAlarm(uint64(nextAlarm))
	}
}

// fireTimerISR is the one-shot alarm callback (§4.4.4). It drains every
// dimmer whose alarm is already due, re-arming for whichever is next,
// looping in place rather than re-entering through the interrupt line
// so simultaneously-due dimmers all fire within one invocation.
func (e *FireEngine) fireTimerISR() {
	// Re-entry guard (§4.4.5): correct only because the platform
	// serializes this callback with itself on a single interrupt line.
	if e.insideISR {
		return
	}
	e.insideISR = true
	defer func() { e.insideISR = false }()

	timer := hal.MustFireTimer()
	gpio := hal.MustGPIO()

	now, err := timer.Count()
	if err != nil {
		return
	}

	var nextAlarm uint16
	for {
		nextAlarm = sentinelDelay

		e.lock.Acquire()
		for _, s := range e.slots {
			if s == nil || s.alarmCount == sentinelDelay {
				continue
			}
			if uint64(s.alarmCount) <= now {
				gpio.SetPin(s.pin, true)
				s.alarmCount = sentinelDelay
			} else if s.alarmCount < nextAlarm {
				nextAlarm = s.alarmCount
			}
		}
		e.lock.Release()

		now, err = timer.Count()
		if err != nil {
			return
		}
		if nextAlarm == sentinelDelay || uint64(nextAlarm) > now {
			break
		}
	}

	if nextAlarm != sentinelDelay {
		timer.ArmAlarm(uint64(nextAlarm))
	} else {
		timer.DisarmAlarm()
	}
}
