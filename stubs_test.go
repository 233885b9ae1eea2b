package ssbspoof

import (
	"fmt"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]any) {}
func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}

type sendRecord struct {
	Samples      int
	StartOfBurst bool
	EndOfBurst   bool
}

// stubRadio is a scriptable Radio for tests. Unset hooks succeed: Receive
// fills the buffer with zeros, Transmit accepts everything.
type stubRadio struct {
	receive  func(buf []complex64) (int, error)
	transmit func(buf []complex64, startOfBurst, endOfBurst bool) (int, error)

	rxStarts int
	rxStops  int
	txStarts int
	txStops  int
	sends    []sendRecord

	startRxErr error
	startTxErr error
}

func (r *stubRadio) StartRx() error {
	r.rxStarts++
	return r.startRxErr
}

func (r *stubRadio) StopRx() error {
	r.rxStops++
	return nil
}

func (r *stubRadio) StartTx() error {
	r.txStarts++
	return r.startTxErr
}

func (r *stubRadio) StopTx() error {
	r.txStops++
	return nil
}

func (r *stubRadio) Receive(buf []complex64) (int, error) {
	if r.receive != nil {
		return r.receive(buf)
	}
	return len(buf), nil
}

func (r *stubRadio) Transmit(buf []complex64, startOfBurst, endOfBurst bool) (int, error) {
	n := len(buf)
	var err error
	if r.transmit != nil {
		n, err = r.transmit(buf, startOfBurst, endOfBurst)
	}
	if err == nil {
		r.sends = append(r.sends, sendRecord{Samples: n, StartOfBurst: startOfBurst, EndOfBurst: endOfBurst})
	}
	return n, err
}

func (r *stubRadio) SetRxGain(float64) error { return nil }
func (r *stubRadio) SetTxGain(float64) error { return nil }

func (r *stubRadio) SetRxFreq(freqHz float64) (float64, error)      { return freqHz, nil }
func (r *stubRadio) SetTxFreq(freqHz float64) (float64, error)      { return freqHz, nil }
func (r *stubRadio) SetSampleRate(srateHz float64) (float64, error) { return srateHz, nil }

func (r *stubRadio) Close() error { return nil }

// stubDetector is a scriptable Detector. The unset search hook never finds.
type stubDetector struct {
	search func(samples []complex64, targetPCI *uint32) (DetectionResult, error)

	encodeErr   error
	generateErr error
	unitSignal  []complex64

	searches  int
	encodes   int
	generates int
}

func (d *stubDetector) Search(samples []complex64, targetPCI *uint32) (DetectionResult, error) {
	d.searches++
	if d.search != nil {
		return d.search(samples, targetPCI)
	}
	return DetectionResult{}, nil
}

func (d *stubDetector) Decode(msg PBCHMessage) (MIB, error) {
	return MIB{}, fmt.Errorf("not implemented")
}

func (d *stubDetector) Encode(mib MIB, ssbIdx uint32, hrf bool) (PBCHMessage, error) {
	d.encodes++
	if d.encodeErr != nil {
		return PBCHMessage{}, d.encodeErr
	}
	return PBCHMessage{SSBIdx: ssbIdx, HRF: hrf, CRCOK: true}, nil
}

func (d *stubDetector) Generate(pci uint32, msg PBCHMessage, ssbIdx uint32) ([]complex64, error) {
	d.generates++
	if d.generateErr != nil {
		return nil, d.generateErr
	}
	if d.unitSignal != nil {
		return d.unitSignal, nil
	}
	unit := make([]complex64, 64)
	for i := range unit {
		unit[i] = complex(0.5, -0.5)
	}
	return unit, nil
}

func (d *stubDetector) SubframeSize() int {
	if d.unitSignal != nil {
		return len(d.unitSignal)
	}
	return 64
}

func (d *stubDetector) Close() error { return nil }
