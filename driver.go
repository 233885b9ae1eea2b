package ssbspoof

import (
	"fmt"
	"sync"
)

// RadioFactory builds a Radio from the RF config section.
type RadioFactory func(cfg RFConfig) (Radio, error)

// DetectorFactory builds a Detector for the given signal parameters. The
// physical-layer backend (cell search, PBCH codec) is supplied by an external
// integration package.
type DetectorFactory func(ssb SSBConfig, srateHz, centerFreqHz float64) (Detector, error)

// RadioRegistry maps device names to factories, the way the original loads
// front-end plugins by name.
type RadioRegistry struct {
	mu        sync.RWMutex
	factories map[string]RadioFactory
}

func NewRadioRegistry() *RadioRegistry {
	registry := &RadioRegistry{factories: make(map[string]RadioFactory)}
	// Register built-ins
	registry.Register("file", func(cfg RFConfig) (Radio, error) {
		return NewFileRadio(cfg.DeviceArgs)
	})
	return registry
}

func (r *RadioRegistry) Register(name string, factory RadioFactory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

func (r *RadioRegistry) Open(cfg RFConfig) (Radio, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.DeviceName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: unknown radio device %q", ErrDevice, cfg.DeviceName)
	}
	radio, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", ErrDevice, cfg.DeviceName, err)
	}
	return radio, nil
}

// Radios is the process-wide radio registry. Hardware drivers register here
// from their own packages.
var Radios = NewRadioRegistry()

var (
	detectorMu      sync.RWMutex
	detectorBackend DetectorFactory
)

// RegisterDetectorBackend installs the physical-layer backend.
func RegisterDetectorBackend(factory DetectorFactory) {
	detectorMu.Lock()
	detectorBackend = factory
	detectorMu.Unlock()
}

// OpenDetector builds a detector from the registered backend.
func OpenDetector(ssb SSBConfig, srateHz, centerFreqHz float64) (Detector, error) {
	detectorMu.RLock()
	factory := detectorBackend
	detectorMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: no detector backend registered", ErrDevice)
	}
	det, err := factory(ssb, srateHz, centerFreqHz)
	if err != nil {
		return nil, fmt.Errorf("%w: opening detector: %v", ErrDevice, err)
	}
	return det, nil
}

// FileRadio is the built-in "file" device: receive replays a raw IQ capture
// (looping at EOF), transmit counts and discards. Configure it with the
// capture path in rf.device_args. Useful for dry runs without hardware.
type FileRadio struct {
	samples  []complex64
	pos      int
	rxActive bool

	TxBursts  uint64
	TxSamples uint64
}

func NewFileRadio(path string) (*FileRadio, error) {
	if path == "" {
		return nil, fmt.Errorf("file radio needs a capture path in rf.device_args")
	}
	samples, err := ReadSamples(path, 0)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s holds no samples", path)
	}
	return &FileRadio{samples: samples}, nil
}

func (r *FileRadio) StartRx() error {
	r.rxActive = true
	return nil
}

func (r *FileRadio) StopRx() error {
	r.rxActive = false
	return nil
}

func (r *FileRadio) StartTx() error { return nil }
func (r *FileRadio) StopTx() error  { return nil }

func (r *FileRadio) Receive(buf []complex64) (int, error) {
	if !r.rxActive {
		return 0, fmt.Errorf("rx stream not started")
	}
	n := 0
	for n < len(buf) {
		copied := copy(buf[n:], r.samples[r.pos:])
		n += copied
		r.pos += copied
		if r.pos >= len(r.samples) {
			r.pos = 0
		}
	}
	return n, nil
}

func (r *FileRadio) Transmit(buf []complex64, startOfBurst, endOfBurst bool) (int, error) {
	r.TxBursts++
	r.TxSamples += uint64(len(buf))
	return len(buf), nil
}

func (r *FileRadio) SetRxGain(gainDB float64) error { return nil }
func (r *FileRadio) SetTxGain(gainDB float64) error { return nil }

func (r *FileRadio) SetRxFreq(freqHz float64) (float64, error) { return freqHz, nil }
func (r *FileRadio) SetTxFreq(freqHz float64) (float64, error) { return freqHz, nil }

func (r *FileRadio) SetSampleRate(srateHz float64) (float64, error) { return srateHz, nil }

func (r *FileRadio) Close() error { return nil }
