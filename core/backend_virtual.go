package core

import "math"

// virtualBackend is the no-op backend: it accepts every duty-cycle
// request and reports success, without driving anything. Useful for
// tests and for simulating a load that isn't physically present yet.
type virtualBackend struct{}

// NewVirtualDimmer creates a dimmer with no hardware effect.
func NewVirtualDimmer() *Dimmer {
	return New(Virtual, virtualBackend{})
}

func (virtualBackend) TypeName() string             { return "virtual" }
func (virtualBackend) Begin(d *Dimmer) error         { return nil }
func (virtualBackend) End(d *Dimmer)                 {}
func (virtualBackend) Apply(d *Dimmer) bool          { return true }

// CalculateHarmonics has no harmonics model for a virtual dimmer: there
// is no hardware behind it to derive one from. H1 is always 100% by
// definition; every harmonic above it is left as NaN.
func (virtualBackend) CalculateHarmonics(d *Dimmer, out []float64) bool {
	out[0] = 100
	for i := 1; i < len(out); i++ {
		out[i] = math.NaN()
	}
	return true
}
