package ssbspoof

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const testScanRate = 1e6 // 1 MHz keeps windows small: 1000 samples per chunk

func newTestScanner(radio *stubRadio, detector *stubDetector) (*ScanController, *InMemoryMetricsCollector, *CancelToken) {
	metrics := NewInMemoryMetricsCollector()
	token := NewCancelToken()
	return NewScanController(radio, detector, nopLogger{}, metrics, nil, token), metrics, token
}

func TestScanWindowAccumulation(t *testing.T) {
	w := NewScanWindow(10)
	if n := w.Append(make([]complex64, 7)); n != 7 {
		t.Fatalf("first append copied %d, want 7", n)
	}
	if w.Full() {
		t.Fatalf("window full at 7/10")
	}
	// Oversized chunk: only the remaining capacity is taken.
	if n := w.Append(make([]complex64, 7)); n != 3 {
		t.Fatalf("second append copied %d, want 3", n)
	}
	if !w.Full() {
		t.Fatalf("window not full at 10/10")
	}
	if len(w.Samples()) != 10 {
		t.Fatalf("samples = %d, want 10", len(w.Samples()))
	}

	w.Reset()
	if w.Full() || len(w.Samples()) != 0 {
		t.Fatalf("reset window not empty")
	}
}

func TestScanFindsOnFirstWindow(t *testing.T) {
	radio := &stubRadio{}
	detector := &stubDetector{
		search: func([]complex64, *uint32) (DetectionResult, error) {
			return DetectionResult{Found: true, PCI: 501, SSBIdx: 1, SNRdB: 22.5}, nil
		},
	}
	scanner, metrics, _ := newTestScanner(radio, detector)

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     10,
		Duration:     time.Second,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Found || res.PCI != 501 {
		t.Fatalf("result = %+v, want PCI 501", res)
	}
	if detector.searches != 1 {
		t.Fatalf("searches = %d, want 1", detector.searches)
	}
	if got := metrics.GetCounterValue("scan_detections_total", nil); got != 1 {
		t.Fatalf("scan_detections_total = %d, want 1", got)
	}
	if radio.rxStarts != 1 || radio.rxStops != 1 {
		t.Fatalf("rx stream start/stop = %d/%d, want 1/1", radio.rxStarts, radio.rxStops)
	}
}

func TestScanSearchesFullWindowsOnly(t *testing.T) {
	var searched []int
	radio := &stubRadio{}
	detector := &stubDetector{
		search: func(samples []complex64, _ *uint32) (DetectionResult, error) {
			searched = append(searched, len(samples))
			if len(searched) == 3 {
				return DetectionResult{Found: true, PCI: 7}, nil
			}
			return DetectionResult{}, nil
		},
	}
	scanner, metrics, _ := newTestScanner(radio, detector)

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     10,
		Duration:     time.Second,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Found {
		t.Fatalf("no detection")
	}
	for i, n := range searched {
		if n != 10000 {
			t.Fatalf("search %d over %d samples, want 10000", i, n)
		}
	}
	if got := metrics.GetCounterValue("scan_windows_total", nil); got != 3 {
		t.Fatalf("scan_windows_total = %d, want 3", got)
	}
}

func TestScanTimeout(t *testing.T) {
	radio := &stubRadio{}
	detector := &stubDetector{}
	scanner, _, _ := newTestScanner(radio, detector)

	start := time.Now()
	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     10,
		Duration:     50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Found {
		t.Fatalf("found a detection with a never-matching detector")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned before deadline: %v", elapsed)
	}
	if detector.searches == 0 {
		t.Fatalf("no windows searched before timeout")
	}
}

func TestScanRetriesTransientReceiveFailures(t *testing.T) {
	calls := 0
	radio := &stubRadio{}
	radio.receive = func(buf []complex64) (int, error) {
		calls++
		if calls <= 2 {
			return 0, fmt.Errorf("overflow")
		}
		return len(buf), nil
	}
	detector := &stubDetector{
		search: func([]complex64, *uint32) (DetectionResult, error) {
			return DetectionResult{Found: true, PCI: 3}, nil
		},
	}
	scanner, _, _ := newTestScanner(radio, detector)

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     1,
		Duration:     time.Second,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Found {
		t.Fatalf("no detection after transient failures")
	}
}

func TestScanContinuesPastDetectorErrors(t *testing.T) {
	radio := &stubRadio{}
	detector := &stubDetector{}
	detector.search = func([]complex64, *uint32) (DetectionResult, error) {
		if detector.searches == 1 {
			return DetectionResult{}, fmt.Errorf("resampler glitch")
		}
		return DetectionResult{Found: true, PCI: 12}, nil
	}
	scanner, _, _ := newTestScanner(radio, detector)

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     1,
		Duration:     time.Second,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Found || res.PCI != 12 {
		t.Fatalf("result = %+v, want PCI 12", res)
	}
	if detector.searches != 2 {
		t.Fatalf("searches = %d, want 2", detector.searches)
	}
}

func TestScanCancellation(t *testing.T) {
	radio := &stubRadio{}
	detector := &stubDetector{}
	scanner, _, token := newTestScanner(radio, detector)
	token.Cancel()

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     10,
		Duration:     time.Hour,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Found {
		t.Fatalf("cancelled scan reported a detection")
	}
	if detector.searches != 0 {
		t.Fatalf("cancelled scan ran %d searches", detector.searches)
	}
}

func TestScanTargetFilterPassedThrough(t *testing.T) {
	want := uint32(208)
	radio := &stubRadio{}
	detector := &stubDetector{
		search: func(_ []complex64, targetPCI *uint32) (DetectionResult, error) {
			if targetPCI == nil || *targetPCI != want {
				return DetectionResult{}, fmt.Errorf("filter not forwarded: %v", targetPCI)
			}
			return DetectionResult{Found: true, PCI: want}, nil
		},
	}
	scanner, _, _ := newTestScanner(radio, detector)

	res, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     1,
		Duration:     time.Second,
		TargetPCI:    &want,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Found {
		t.Fatalf("filtered scan found nothing")
	}
}

func TestScanStartRxFailure(t *testing.T) {
	radio := &stubRadio{startRxErr: fmt.Errorf("no rx chain")}
	scanner, _, _ := newTestScanner(radio, &stubDetector{})

	_, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     10,
		Duration:     time.Second,
	})
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}
}

func TestScanRejectsBadGeometry(t *testing.T) {
	scanner, _, _ := newTestScanner(&stubRadio{}, &stubDetector{})
	_, err := scanner.Scan(ScanOptions{SampleRateHz: 0, WindowMs: 10, Duration: time.Second})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestScanCapturesToFileSink(t *testing.T) {
	sink, err := NewSampleFileSink(t.TempDir() + "/capture.dat")
	if err != nil {
		t.Fatalf("NewSampleFileSink: %v", err)
	}
	defer sink.Close()

	radio := &stubRadio{}
	detector := &stubDetector{}
	detector.search = func([]complex64, *uint32) (DetectionResult, error) {
		if detector.searches == 3 {
			return DetectionResult{Found: true, PCI: 1}, nil
		}
		return DetectionResult{}, nil
	}
	scanner, _, _ := newTestScanner(radio, detector)

	if _, err := scanner.Scan(ScanOptions{
		SampleRateHz: testScanRate,
		WindowMs:     1,
		Duration:     time.Second,
		FileSink:     sink,
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// Three 1ms windows of 1000 samples each passed through the sink.
	if sink.Total() != 3000 {
		t.Fatalf("captured %d samples, want 3000", sink.Total())
	}
}
