package ssbspoof

import (
	"fmt"
	"time"
)

const (
	// Consecutive transmit failures tolerated before the run aborts for good.
	maxConsecutiveTxFailures = 10

	// Backoff before retrying a failed transmit.
	transmitRetryBackoff = 10 * time.Millisecond

	// Nominal SSB broadcast period the attack ratio is measured against.
	nominalSSBPeriod = 10 * time.Millisecond

	shortSendWarnLimit = 5
)

// BurstBounds limits a continuous run. MaxBursts of 0 means unlimited; the
// run then ends only on cancellation or fatal failure.
type BurstBounds struct {
	MaxBursts uint64
}

// BurstOptions controls one scheduler run.
type BurstOptions struct {
	Continuous bool
	Interval   time.Duration
	Bounds     BurstBounds
}

// Statistics summarizes a scheduler run.
type Statistics struct {
	SentCount    uint64        `json:"sentCount"`
	Elapsed      time.Duration `json:"elapsed"`
	AvgRate      float64       `json:"avgRate"`      // bursts per second
	TotalSamples uint64        `json:"totalSamples"` // samples transmitted
	AvgBurstTime time.Duration `json:"avgBurstTime"` // mean inter-send period
	AttackRatio  float64       `json:"attackRatio"`  // nominal period / achieved period
	Aborted      bool          `json:"aborted"`
}

// BurstScheduler repeatedly hands a composed buffer to the radio at the
// configured cadence.
type BurstScheduler struct {
	radio   Radio
	logger  Logger
	metrics MetricsCollector
	sink    EventSink
	token   *CancelToken
}

func NewBurstScheduler(radio Radio, logger Logger, metrics MetricsCollector, sink EventSink, token *CancelToken) *BurstScheduler {
	if sink == nil {
		sink = NopSink{}
	}
	return &BurstScheduler{
		radio:   radio,
		logger:  logger,
		metrics: metrics,
		sink:    sink,
		token:   token,
	}
}

// Run transmits buf per opts and returns run statistics. In continuous mode
// the loop ends when the burst bound is reached, the token is set, or
// maxConsecutiveTxFailures transmit failures occur back to back; the last
// case returns ErrTransmitAbort. Sends are strictly sequential.
func (b *BurstScheduler) Run(buf []complex64, opts BurstOptions) (Statistics, error) {
	if len(buf) == 0 {
		return Statistics{}, fmt.Errorf("%w: empty transmit buffer", ErrTransmitAbort)
	}

	if err := b.radio.StartTx(); err != nil {
		return Statistics{}, fmt.Errorf("%w: starting TX stream: %v", ErrDevice, err)
	}
	defer b.radio.StopTx()

	if !opts.Continuous {
		return b.runSingle(buf)
	}
	return b.runContinuous(buf, opts)
}

func (b *BurstScheduler) runSingle(buf []complex64) (Statistics, error) {
	start := time.Now()
	n, err := b.radio.Transmit(buf, true, true)
	if err != nil {
		b.metrics.IncrementCounter("tx_errors_total", nil)
		return Statistics{Aborted: true, Elapsed: time.Since(start)},
			fmt.Errorf("%w: single transmission failed: %v", ErrTransmitAbort, err)
	}

	elapsed := time.Since(start)
	b.metrics.IncrementCounter("tx_bursts_total", nil)
	b.sink.BurstSent(1, elapsed)
	b.logger.Info("ssb transmitted", map[string]any{"samples": n})

	return b.finalize(1, uint64(len(buf)), elapsed, false), nil
}

func (b *BurstScheduler) runContinuous(buf []complex64, opts BurstOptions) (Statistics, error) {
	// A nonzero inter-burst delay means the hardware pipeline drains between
	// bursts, so end-of-burst is flagged on every send to avoid underrun
	// artifacts. Back-to-back bursts keep the pipeline open.
	endOfBurst := opts.Interval > 0

	var (
		sent              uint64
		consecutiveErrors int
		shortSends        int
	)
	start := time.Now()

	for {
		if b.token.Cancelled() {
			break
		}
		if opts.Bounds.MaxBursts > 0 && sent >= opts.Bounds.MaxBursts {
			break
		}

		n, err := b.radio.Transmit(buf, sent == 0, endOfBurst)
		if err != nil {
			consecutiveErrors++
			b.metrics.IncrementCounter("tx_errors_total", nil)
			b.sink.TransmitError(consecutiveErrors, err)
			if consecutiveErrors >= maxConsecutiveTxFailures {
				b.logger.Error("too many consecutive transmission errors", map[string]any{
					"consecutive": consecutiveErrors,
				})
				stats := b.finalize(sent, sent*uint64(len(buf)), time.Since(start), true)
				return stats, fmt.Errorf("%w: %d consecutive transmit failures", ErrTransmitAbort, consecutiveErrors)
			}
			time.Sleep(transmitRetryBackoff)
			continue
		}

		if n < len(buf) && shortSends < shortSendWarnLimit {
			shortSends++
			b.logger.Warn("short transmit", map[string]any{"got": n, "want": len(buf)})
		}

		consecutiveErrors = 0
		sent++
		b.metrics.IncrementCounter("tx_bursts_total", nil)
		b.sink.BurstSent(sent, time.Since(start))

		if opts.Interval > 0 {
			time.Sleep(opts.Interval)
		}
	}

	stats := b.finalize(sent, sent*uint64(len(buf)), time.Since(start), false)
	return stats, nil
}

func (b *BurstScheduler) finalize(sent, totalSamples uint64, elapsed time.Duration, aborted bool) Statistics {
	stats := Statistics{
		SentCount:    sent,
		Elapsed:      elapsed,
		TotalSamples: totalSamples,
		Aborted:      aborted,
	}
	if elapsed > 0 {
		stats.AvgRate = float64(sent) / elapsed.Seconds()
	}
	if sent > 0 {
		stats.AvgBurstTime = elapsed / time.Duration(sent)
	}
	if stats.AvgBurstTime > 0 {
		stats.AttackRatio = float64(nominalSSBPeriod) / float64(stats.AvgBurstTime)
	}
	b.metrics.SetGauge("tx_burst_rate", stats.AvgRate, nil)
	return stats
}
