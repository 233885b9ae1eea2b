package ssbspoof

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestScheduler(radio *stubRadio) (*BurstScheduler, *InMemoryMetricsCollector, *CancelToken) {
	metrics := NewInMemoryMetricsCollector()
	token := NewCancelToken()
	return NewBurstScheduler(radio, nopLogger{}, metrics, nil, token), metrics, token
}

func TestSchedulerBoundedRun(t *testing.T) {
	radio := &stubRadio{}
	scheduler, metrics, _ := newTestScheduler(radio)
	buf := make([]complex64, 128)

	stats, err := scheduler.Run(buf, BurstOptions{
		Continuous: true,
		Bounds:     BurstBounds{MaxBursts: 25},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SentCount != 25 {
		t.Fatalf("sent = %d, want 25", stats.SentCount)
	}
	if len(radio.sends) != 25 {
		t.Fatalf("transmit calls = %d, want 25", len(radio.sends))
	}
	if stats.TotalSamples != 25*128 {
		t.Fatalf("total samples = %d, want %d", stats.TotalSamples, 25*128)
	}
	if stats.Aborted {
		t.Fatalf("bounded run marked aborted")
	}
	if got := metrics.GetCounterValue("tx_bursts_total", nil); got != 25 {
		t.Fatalf("tx_bursts_total = %d, want 25", got)
	}
	if radio.txStarts != 1 || radio.txStops != 1 {
		t.Fatalf("tx stream start/stop = %d/%d, want 1/1", radio.txStarts, radio.txStops)
	}
}

func TestSchedulerStartOfBurstFirstOnly(t *testing.T) {
	radio := &stubRadio{}
	scheduler, _, _ := newTestScheduler(radio)

	_, err := scheduler.Run(make([]complex64, 16), BurstOptions{
		Continuous: true,
		Bounds:     BurstBounds{MaxBursts: 5},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !radio.sends[0].StartOfBurst {
		t.Fatalf("first send missing start_of_burst")
	}
	for i, s := range radio.sends[1:] {
		if s.StartOfBurst {
			t.Fatalf("send %d has start_of_burst set", i+1)
		}
	}
}

func TestSchedulerEndOfBurstFollowsInterval(t *testing.T) {
	// Back-to-back bursts keep the pipeline open; a nonzero interval drains
	// it on every send.
	cases := []struct {
		interval time.Duration
		want     bool
	}{
		{0, false},
		{100 * time.Microsecond, true},
	}
	for _, tc := range cases {
		radio := &stubRadio{}
		scheduler, _, _ := newTestScheduler(radio)

		_, err := scheduler.Run(make([]complex64, 16), BurstOptions{
			Continuous: true,
			Interval:   tc.interval,
			Bounds:     BurstBounds{MaxBursts: 3},
		})
		if err != nil {
			t.Fatalf("Run(interval=%v): %v", tc.interval, err)
		}
		for i, s := range radio.sends {
			if s.EndOfBurst != tc.want {
				t.Fatalf("interval=%v send %d: end_of_burst = %v, want %v", tc.interval, i, s.EndOfBurst, tc.want)
			}
		}
	}
}

func TestSchedulerAbortsAfterConsecutiveFailures(t *testing.T) {
	attempts := 0
	radio := &stubRadio{
		transmit: func([]complex64, bool, bool) (int, error) {
			attempts++
			return 0, fmt.Errorf("device unavailable")
		},
	}
	scheduler, metrics, _ := newTestScheduler(radio)

	stats, err := scheduler.Run(make([]complex64, 16), BurstOptions{Continuous: true})
	if !errors.Is(err, ErrTransmitAbort) {
		t.Fatalf("err = %v, want ErrTransmitAbort", err)
	}
	if attempts != maxConsecutiveTxFailures {
		t.Fatalf("attempts = %d, want %d", attempts, maxConsecutiveTxFailures)
	}
	if !stats.Aborted {
		t.Fatalf("stats not marked aborted")
	}
	if stats.SentCount != 0 {
		t.Fatalf("sent = %d, want 0", stats.SentCount)
	}
	if got := metrics.GetCounterValue("tx_errors_total", nil); got != int64(maxConsecutiveTxFailures) {
		t.Fatalf("tx_errors_total = %d, want %d", got, maxConsecutiveTxFailures)
	}
}

func TestSchedulerFailureCounterResetsOnSuccess(t *testing.T) {
	attempts := 0
	radio := &stubRadio{}
	radio.transmit = func(buf []complex64, _, _ bool) (int, error) {
		attempts++
		// Fail every other attempt; successes must keep resetting the
		// consecutive-failure counter.
		if attempts%2 == 1 {
			return 0, fmt.Errorf("transient underrun")
		}
		return len(buf), nil
	}
	scheduler, _, _ := newTestScheduler(radio)

	stats, err := scheduler.Run(make([]complex64, 16), BurstOptions{
		Continuous: true,
		Bounds:     BurstBounds{MaxBursts: 12},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SentCount != 12 {
		t.Fatalf("sent = %d, want 12", stats.SentCount)
	}
	if stats.Aborted {
		t.Fatalf("run marked aborted")
	}
}

func TestSchedulerCancellation(t *testing.T) {
	radio := &stubRadio{}
	scheduler, _, token := newTestScheduler(radio)
	token.Cancel()

	stats, err := scheduler.Run(make([]complex64, 16), BurstOptions{Continuous: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SentCount != 0 || len(radio.sends) != 0 {
		t.Fatalf("cancelled run transmitted: sent=%d calls=%d", stats.SentCount, len(radio.sends))
	}
}

func TestSchedulerCancelMidRun(t *testing.T) {
	radio := &stubRadio{}
	scheduler, _, token := newTestScheduler(radio)
	radio.transmit = func(buf []complex64, _, _ bool) (int, error) {
		if len(radio.sends) == 9 {
			token.Cancel()
		}
		return len(buf), nil
	}

	stats, err := scheduler.Run(make([]complex64, 16), BurstOptions{Continuous: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SentCount != 10 {
		t.Fatalf("sent = %d, want 10", stats.SentCount)
	}
}

func TestSchedulerSingleShot(t *testing.T) {
	radio := &stubRadio{}
	scheduler, _, _ := newTestScheduler(radio)

	stats, err := scheduler.Run(make([]complex64, 32), BurstOptions{Continuous: false})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SentCount != 1 || len(radio.sends) != 1 {
		t.Fatalf("single shot sent %d bursts", stats.SentCount)
	}
	if !radio.sends[0].StartOfBurst || !radio.sends[0].EndOfBurst {
		t.Fatalf("single shot flags = %+v, want both set", radio.sends[0])
	}
}

func TestSchedulerSingleShotFailure(t *testing.T) {
	radio := &stubRadio{
		transmit: func([]complex64, bool, bool) (int, error) {
			return 0, fmt.Errorf("device gone")
		},
	}
	scheduler, _, _ := newTestScheduler(radio)

	stats, err := scheduler.Run(make([]complex64, 32), BurstOptions{Continuous: false})
	if !errors.Is(err, ErrTransmitAbort) {
		t.Fatalf("err = %v, want ErrTransmitAbort", err)
	}
	if !stats.Aborted {
		t.Fatalf("stats not marked aborted")
	}
}

func TestSchedulerRejectsEmptyBuffer(t *testing.T) {
	radio := &stubRadio{}
	scheduler, _, _ := newTestScheduler(radio)

	if _, err := scheduler.Run(nil, BurstOptions{Continuous: true}); !errors.Is(err, ErrTransmitAbort) {
		t.Fatalf("err = %v, want ErrTransmitAbort", err)
	}
	if radio.txStarts != 0 {
		t.Fatalf("tx stream started for empty buffer")
	}
}

func TestSchedulerStartTxFailure(t *testing.T) {
	radio := &stubRadio{startTxErr: fmt.Errorf("no tx chain")}
	scheduler, _, _ := newTestScheduler(radio)

	if _, err := scheduler.Run(make([]complex64, 16), BurstOptions{Continuous: true}); !errors.Is(err, ErrDevice) {
		t.Fatalf("err = %v, want ErrDevice", err)
	}
}
