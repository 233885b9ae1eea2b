package ssbspoof

import (
	"time"
)

// Radio is the front-end driver contract. Implementations are exclusively
// owned by the control goroutine for the session's lifetime.
type Radio interface {
	StartRx() error
	StopRx() error
	StartTx() error
	StopTx() error

	// Receive fills buf and returns the number of samples actually written.
	// A zero count without an error is a transient condition.
	Receive(buf []complex64) (int, error)

	// Transmit sends buf. startOfBurst must be set on the first send of a
	// burst train, endOfBurst flushes the hardware pipeline.
	Transmit(buf []complex64, startOfBurst, endOfBurst bool) (int, error)

	SetRxGain(gainDB float64) error
	SetTxGain(gainDB float64) error
	SetRxFreq(freqHz float64) (float64, error)
	SetTxFreq(freqHz float64) (float64, error)
	SetSampleRate(srateHz float64) (float64, error)

	Close() error
}

// Detector is the physical-layer search/codec contract. Cell search, PBCH
// demodulation and MIB packing live behind it.
type Detector interface {
	// Search runs one synchronization search over samples. targetPCI narrows
	// the result to a single cell; nil accepts any cell.
	Search(samples []complex64, targetPCI *uint32) (DetectionResult, error)

	Decode(msg PBCHMessage) (MIB, error)
	Encode(mib MIB, ssbIdx uint32, hrf bool) (PBCHMessage, error)

	// Generate renders one subframe containing the encoded SSB.
	Generate(pci uint32, msg PBCHMessage, ssbIdx uint32) ([]complex64, error)

	// SubframeSize is the unit-signal length in samples at the configured rate.
	SubframeSize() int

	Close() error
}

// MIB is the decoded master information block carried on the broadcast channel.
type MIB struct {
	SFN                  uint32 `json:"sfn"`
	SSBIdx               uint32 `json:"ssbIdx"`
	HRF                  bool   `json:"hrf"`
	SCSCommonKHz         uint32 `json:"scsCommonKHz"`
	SSBOffset            uint32 `json:"ssbOffset"`
	DMRSTypeAPos         uint32 `json:"dmrsTypeAPos"`
	Coreset0Idx          uint32 `json:"coreset0Idx"`
	SS0Idx               uint32 `json:"ss0Idx"`
	CellBarred           bool   `json:"cellBarred"`
	IntraFreqReselection bool   `json:"intraFreqReselection"`
}

// PBCHMessage is the wire-format encoding of a MIB plus framing fields.
type PBCHMessage struct {
	Payload [4]byte `json:"payload"`
	SSBIdx  uint32  `json:"ssbIdx"`
	HRF     bool    `json:"hrf"`
	CRCOK   bool    `json:"crcOK"`
}

// DetectionResult is produced by one detector search. Found is true only when
// the integrity check passed and, with a target filter set, the PCI matched.
type DetectionResult struct {
	Found   bool        `json:"found"`
	PCI     uint32      `json:"pci"`
	SSBIdx  uint32      `json:"ssbIdx"`
	Message PBCHMessage `json:"message"`
	MIB     MIB         `json:"mib"`
	SNRdB   float64     `json:"snrDB"`
	RSRPdBm float64     `json:"rsrpDBm"`
}

// Logger interface for basic structured logging
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// MetricsCollector interface for observability
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	AddCounter(name string, delta int64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	ExportPrometheus() string
}

// EventSink receives discrete progress events from the core loops. The loops
// perform no console I/O themselves; displays and status boards implement this.
type EventSink interface {
	WindowScanned(windows uint64, elapsed time.Duration)
	DetectionFound(res DetectionResult)
	BurstSent(sent uint64, elapsed time.Duration)
	TransmitError(consecutive int, err error)
	SamplesCaptured(total uint64, captured time.Duration)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) WindowScanned(uint64, time.Duration)   {}
func (NopSink) DetectionFound(DetectionResult)        {}
func (NopSink) BurstSent(uint64, time.Duration)       {}
func (NopSink) TransmitError(int, error)              {}
func (NopSink) SamplesCaptured(uint64, time.Duration) {}

// FanoutSink forwards every event to all member sinks in order.
type FanoutSink []EventSink

func (f FanoutSink) WindowScanned(n uint64, d time.Duration) {
	for _, s := range f {
		s.WindowScanned(n, d)
	}
}

func (f FanoutSink) DetectionFound(res DetectionResult) {
	for _, s := range f {
		s.DetectionFound(res)
	}
}

func (f FanoutSink) BurstSent(n uint64, d time.Duration) {
	for _, s := range f {
		s.BurstSent(n, d)
	}
}

func (f FanoutSink) TransmitError(consecutive int, err error) {
	for _, s := range f {
		s.TransmitError(consecutive, err)
	}
}

func (f FanoutSink) SamplesCaptured(total uint64, d time.Duration) {
	for _, s := range f {
		s.SamplesCaptured(total, d)
	}
}
