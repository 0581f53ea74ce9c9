package core

import "math"

// Metrics holds the electrical quantities derived for a purely resistive
// load driven at a given conduction duty cycle.
type Metrics struct {
	Power         float64 // W
	ApparentPower float64 // VA
	Current       float64 // A (RMS)
	Voltage       float64 // V (RMS, output)
	PowerFactor   float64
	THDiPercent   float64
}

// resistiveLoadMetrics computes Metrics for a purely resistive load at
// grid voltage v, resistance r, and conduction duty cycle d. The
// identities used here hold exactly for a phase-controlled resistive
// load: a sinewave chopped at a fixed firing angle every half-cycle.
func resistiveLoadMetrics(d, v, r float64) Metrics {
	p0 := v * v / r

	switch d {
	case 0:
		return Metrics{PowerFactor: math.NaN(), THDiPercent: math.NaN()}
	case 1:
		return Metrics{
			Power:         p0,
			ApparentPower: p0,
			Current:       v / r,
			Voltage:       v,
			PowerFactor:   1,
			THDiPercent:   0,
		}
	default:
		power := d * p0
		pf := math.Sqrt(d)
		vout := pf * v
		current := vout / r
		apparent := v * current
		thdi := 100 * math.Sqrt(1/d-1)
		return Metrics{
			Power:         power,
			ApparentPower: apparent,
			Current:       current,
			Voltage:       vout,
			PowerFactor:   pf,
			THDiPercent:   thdi,
		}
	}
}

// phaseControlHarmonics fills out with the odd-harmonic magnitudes
// (H1=100 anchor, then H3, H5, …) for a phase-controlled resistive load
// firing at conduction ratio dutyCycleFire. Shared by every backend whose
// downstream load is itself phase-controlled — thyristor, PWM-driven
// analog converter, and I²C DAC alike, per §4.5's note that the analog
// convertor downstream does phase-control the load regardless of how
// its control signal was generated.
func phaseControlHarmonics(dutyCycleFire float64, out []float64) bool {
	if len(out) == 0 {
		return true
	}

	// Full conduction is an undistorted sinewave: only the fundamental.
	if dutyCycleFire >= 1 {
		out[0] = 100
		for i := 1; i < len(out); i++ {
			out[i] = 0
		}
		return true
	}

	alpha := math.Pi * (1 - dutyCycleFire)
	sin2a := math.Sin(2 * alpha)
	i1rms := math.Sqrt((2 / math.Pi) * (math.Pi - alpha + 0.5*sin2a))
	if i1rms <= 0.001 {
		return false
	}

	out[0] = 100
	scale := (2 / math.Pi) * (1 / math.Sqrt2) * 100 / i1rms
	for i := 1; i < len(out); i++ {
		n := float64(2*i + 1)
		coeff := math.Cos((n-1)*alpha)/(n-1) - math.Cos((n+1)*alpha)/(n+1)
		out[i] = math.Abs(coeff) * scale
	}
	return true
}
