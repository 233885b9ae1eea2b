package ssbspoof

import (
	"fmt"
	"math"
)

// rmsEpsilon keeps the normalization divisor nonzero for silent signals.
const rmsEpsilon = 1e-12

// BurstPlan is a composed transmit buffer plus the parameters it was built
// from. ScaleFactor is derived on every composition, never persisted.
type BurstPlan struct {
	UnitSignal  []complex64
	RepeatCount uint32
	Composed    []complex64
	ScaleFactor float64
}

// Compose concatenates repeat contiguous copies of unit and normalizes the
// whole buffer's RMS amplitude to target. The encoder gives no amplitude
// guarantee for the unit signal; the spoofed broadcast has to match or exceed
// the legitimate cell's power at the receiver, so every composition scales to
// a fixed target.
func Compose(unit []complex64, repeat uint32, target float64) (BurstPlan, error) {
	if len(unit) == 0 {
		return BurstPlan{}, fmt.Errorf("empty unit signal")
	}
	if repeat == 0 {
		return BurstPlan{}, fmt.Errorf("repeat count must be >= 1")
	}

	total := len(unit) * int(repeat)
	composed := make([]complex64, total)
	for i := 0; i < int(repeat); i++ {
		copy(composed[i*len(unit):], unit)
	}

	rms := RMS(composed)
	scale := target / (rms + rmsEpsilon)
	s := complex(float32(scale), 0)
	for i := range composed {
		composed[i] *= s
	}

	return BurstPlan{
		UnitSignal:  unit,
		RepeatCount: repeat,
		Composed:    composed,
		ScaleFactor: scale,
	}, nil
}

// RMS returns sqrt(mean(|s|^2)) over buf.
func RMS(buf []complex64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var power float64
	for _, s := range buf {
		re := float64(real(s))
		im := float64(imag(s))
		power += re*re + im*im
	}
	return math.Sqrt(power / float64(len(buf)))
}
