package ssbspoof

import (
	"fmt"
	"time"
)

const (
	// Backoff after a transient receive failure. Retries do not count against
	// the sample budget but the wall-clock deadline keeps running.
	receiveRetryBackoff = 10 * time.Millisecond

	// RX warm-up: settle time after stream start, then discard reads to flush
	// stale hardware buffers.
	warmupSettle     = 500 * time.Millisecond
	warmupFlushReads = 10

	// Only the first few short receives are worth a warning.
	shortReadWarnLimit = 5
)

// ScanWindow is a fixed-capacity sample accumulator. The write cursor resets
// after every detection attempt; windows never overlap.
type ScanWindow struct {
	buf []complex64
	pos int
}

func NewScanWindow(capacity int) *ScanWindow {
	return &ScanWindow{buf: make([]complex64, capacity)}
}

// Append copies as much of chunk as fits and returns the count copied. The
// remainder of an oversized chunk is dropped.
func (w *ScanWindow) Append(chunk []complex64) int {
	n := copy(w.buf[w.pos:], chunk)
	w.pos += n
	return n
}

func (w *ScanWindow) Full() bool {
	return w.pos >= len(w.buf)
}

func (w *ScanWindow) Samples() []complex64 {
	return w.buf[:w.pos]
}

func (w *ScanWindow) Reset() {
	w.pos = 0
}

// ScanOptions controls one scan run.
type ScanOptions struct {
	SampleRateHz float64
	WindowMs     uint32
	Duration     time.Duration
	TargetPCI    *uint32

	// WarmUp settles the RX stream and flushes stale samples before the timed
	// loop starts.
	WarmUp bool

	// FileSink, when non-nil, captures every received chunk to disk.
	FileSink *SampleFileSink
}

// ScanController accumulates receive chunks into non-overlapping windows and
// drives detector searches until success, timeout or cancellation.
type ScanController struct {
	radio    Radio
	detector Detector
	logger   Logger
	metrics  MetricsCollector
	sink     EventSink
	token    *CancelToken
}

func NewScanController(radio Radio, detector Detector, logger Logger, metrics MetricsCollector, sink EventSink, token *CancelToken) *ScanController {
	if sink == nil {
		sink = NopSink{}
	}
	return &ScanController{
		radio:    radio,
		detector: detector,
		logger:   logger,
		metrics:  metrics,
		sink:     sink,
		token:    token,
	}
}

// Scan pulls 1 ms receive chunks until a detection succeeds, the deadline
// elapses or the token is set. Detection is one-shot: the first hit wins.
// A negative outcome is not an error; the result simply has Found=false.
func (s *ScanController) Scan(opts ScanOptions) (DetectionResult, error) {
	chunkSize := int(opts.SampleRateHz * 0.001)
	windowSize := int(opts.SampleRateHz * float64(opts.WindowMs) / 1000.0)
	if chunkSize <= 0 || windowSize <= 0 {
		return DetectionResult{}, fmt.Errorf("%w: scan needs a positive sample rate and window", ErrConfig)
	}

	if err := s.radio.StartRx(); err != nil {
		return DetectionResult{}, fmt.Errorf("%w: starting RX stream: %v", ErrDevice, err)
	}
	defer s.radio.StopRx()

	chunk := make([]complex64, chunkSize)
	window := NewScanWindow(windowSize)

	if opts.WarmUp {
		time.Sleep(warmupSettle)
		for i := 0; i < warmupFlushReads; i++ {
			s.radio.Receive(chunk)
		}
	}

	s.logger.Info("scan started", map[string]any{
		"window_samples": windowSize,
		"chunk_samples":  chunkSize,
		"duration_sec":   opts.Duration.Seconds(),
	})

	start := time.Now()
	var (
		windows    uint64
		shortReads int
		captures   uint64
	)

	for {
		if s.token.Cancelled() {
			s.logger.Info("scan cancelled", nil)
			return DetectionResult{}, nil
		}

		elapsed := time.Since(start)
		if elapsed > opts.Duration {
			s.logger.Info("scan timeout reached", map[string]any{"duration_sec": opts.Duration.Seconds()})
			return DetectionResult{}, nil
		}

		n, err := s.radio.Receive(chunk)
		if err != nil || n <= 0 {
			time.Sleep(receiveRetryBackoff)
			continue
		}

		if n < chunkSize && shortReads < shortReadWarnLimit {
			shortReads++
			s.logger.Warn("short receive", map[string]any{"got": n, "want": chunkSize})
		}

		if opts.FileSink != nil {
			if err := opts.FileSink.Append(chunk[:n]); err != nil {
				s.logger.Warn("sample capture failed", map[string]any{"error": err.Error()})
			} else {
				captures++
				if captures%100 == 0 {
					total := opts.FileSink.Total()
					s.sink.SamplesCaptured(total, time.Duration(float64(total)/opts.SampleRateHz*float64(time.Second)))
				}
			}
		}

		window.Append(chunk[:n])
		if !window.Full() {
			continue
		}

		res, err := s.detector.Search(window.Samples(), opts.TargetPCI)
		window.Reset()
		windows++
		s.metrics.IncrementCounter("scan_windows_total", nil)
		s.sink.WindowScanned(windows, elapsed)

		if err != nil {
			s.logger.Debug("detector search failed", map[string]any{"error": err.Error()})
			continue
		}
		if !res.Found {
			continue
		}

		s.metrics.IncrementCounter("scan_detections_total", nil)
		s.logger.Info("ssb found", map[string]any{
			"pci":      res.PCI,
			"ssb_idx":  res.SSBIdx,
			"snr_db":   res.SNRdB,
			"rsrp_dbm": res.RSRPdBm,
		})
		s.sink.DetectionFound(res)
		return res, nil
	}
}
