package ssbspoof

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RFConfig holds radio front-end parameters.
type RFConfig struct {
	DeviceName   string
	DeviceArgs   string
	RxFreqHz     float64
	TxFreqHz     float64
	SampleRateHz float64
	RxGainDB     float64
	TxGainDB     float64
}

// SSBConfig holds broadcast-signal parameters handed to the detector.
type SSBConfig struct {
	Pattern       string
	SCSKHz        uint32
	PeriodicityMs uint32
	FreqOffsetHz  float64
	BetaPSS       float64
	BetaSSS       float64
	BetaPBCH      float64
	BetaPBCHDMRS  float64
}

// AttackConfig holds target selection, MIB modification directives and burst
// control parameters.
type AttackConfig struct {
	TargetPCI     uint32
	ScanForTarget bool

	ModifyCellBarred     bool
	CellBarredValue      bool
	ModifyCoreset0Idx    bool
	Coreset0IdxValue     uint32
	ModifySS0Idx         bool
	SS0IdxValue          uint32
	ModifyIntraFreqResel bool
	IntraFreqReselValue  bool

	TxPowerOffsetDB float64
	ContinuousTx    bool

	MaxBursts       uint64
	BurstIntervalUs uint32
	BurstLengthMs   uint32
}

// OperationConfig holds run-control and output parameters.
type OperationConfig struct {
	ScanDurationSec float64
	ScanWindowMs    uint32
	LogLevel        string
	LogFile         string
	SaveSamples     bool
	SamplesFile     string
	LedgerFile      string
}

// MonitorConfig enables the optional HTTP status server.
type MonitorConfig struct {
	Enabled    bool
	ListenAddr string
}

type Config struct {
	RF        RFConfig
	SSB       SSBConfig
	Attack    AttackConfig
	Operation OperationConfig
	Monitor   MonitorConfig
}

// Spec builds the field-modification directives from the attack section.
func (c *Config) Spec() ModificationSpec {
	return ModificationSpec{
		CellBarred:           BoolDirective{Enabled: c.Attack.ModifyCellBarred, Value: c.Attack.CellBarredValue},
		Coreset0Idx:          UintDirective{Enabled: c.Attack.ModifyCoreset0Idx, Value: c.Attack.Coreset0IdxValue},
		SS0Idx:               UintDirective{Enabled: c.Attack.ModifySS0Idx, Value: c.Attack.SS0IdxValue},
		IntraFreqReselection: BoolDirective{Enabled: c.Attack.ModifyIntraFreqResel, Value: c.Attack.IntraFreqReselValue},
	}
}

// TargetFilter returns the PCI filter for scanning, nil when any cell is
// accepted.
func (c *Config) TargetFilter() *uint32 {
	if !c.Attack.ScanForTarget {
		return nil
	}
	pci := c.Attack.TargetPCI
	return &pci
}

// LoadConfig reads a sectioned YAML config file. Missing keys fall back to
// defaults; a file that yields no keys at all is rejected.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, filename, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, filename, err)
	}

	kv := flatten(doc)
	if len(kv) == 0 {
		return nil, fmt.Errorf("%w: %s is empty or has no keys", ErrConfig, filename)
	}

	config := &Config{
		RF: RFConfig{
			DeviceName:   getString(kv, "rf.device_name", "uhd"),
			DeviceArgs:   getString(kv, "rf.device_args", ""),
			RxFreqHz:     getFloat(kv, "rf.rx_freq_hz", 3510000000.0),
			TxFreqHz:     getFloat(kv, "rf.tx_freq_hz", 3510000000.0),
			SampleRateHz: getFloat(kv, "rf.sample_rate_hz", 23040000.0),
			RxGainDB:     getFloat(kv, "rf.rx_gain_db", 40.0),
			TxGainDB:     getFloat(kv, "rf.tx_gain_db", 60.0),
		},
		SSB: SSBConfig{
			Pattern:       getString(kv, "ssb.pattern", "C"),
			SCSKHz:        getUint(kv, "ssb.scs_khz", 30),
			PeriodicityMs: getUint(kv, "ssb.periodicity_ms", 20),
			FreqOffsetHz:  getFloat(kv, "ssb.ssb_freq_offset_hz", 0.0),
			BetaPSS:       getFloat(kv, "ssb.beta_pss", 0.0),
			BetaSSS:       getFloat(kv, "ssb.beta_sss", 0.0),
			BetaPBCH:      getFloat(kv, "ssb.beta_pbch", 0.0),
			BetaPBCHDMRS:  getFloat(kv, "ssb.beta_pbch_dmrs", 0.0),
		},
		Attack: AttackConfig{
			TargetPCI:            getUint(kv, "attack.target_pci", 0),
			ScanForTarget:        getBool(kv, "attack.scan_for_target", true),
			ModifyCellBarred:     getBool(kv, "attack.modify_cell_barred", true),
			CellBarredValue:      getBool(kv, "attack.cell_barred_value", true),
			ModifyCoreset0Idx:    getBool(kv, "attack.modify_coreset0_idx", false),
			Coreset0IdxValue:     getUint(kv, "attack.coreset0_idx_value", 15),
			ModifySS0Idx:         getBool(kv, "attack.modify_ss0_idx", false),
			SS0IdxValue:          getUint(kv, "attack.ss0_idx_value", 15),
			ModifyIntraFreqResel: getBool(kv, "attack.modify_intra_freq_resel", false),
			IntraFreqReselValue:  getBool(kv, "attack.intra_freq_resel_value", false),
			TxPowerOffsetDB:      getFloat(kv, "attack.tx_power_offset_db", 0.0),
			ContinuousTx:         getBool(kv, "attack.continuous_tx", true),
			MaxBursts:            uint64(getUint(kv, "attack.max_bursts", 0)),
			BurstIntervalUs:      getUint(kv, "attack.burst_interval_us", 500),
			BurstLengthMs:        getUint(kv, "attack.burst_length_ms", 1),
		},
		Operation: OperationConfig{
			ScanDurationSec: getFloat(kv, "operation.scan_duration_sec", 10.0),
			ScanWindowMs:    getUint(kv, "operation.scan_window_ms", 10),
			LogLevel:        getString(kv, "operation.log_level", "info"),
			LogFile:         getString(kv, "operation.log_file", "ssb_spoofer.log"),
			SaveSamples:     getBool(kv, "operation.save_samples", false),
			SamplesFile:     getString(kv, "operation.samples_file", "rx_samples.dat"),
			LedgerFile:      getString(kv, "operation.ledger_file", ""),
		},
		Monitor: MonitorConfig{
			Enabled:    getBool(kv, "monitor.enabled", false),
			ListenAddr: getString(kv, "monitor.listen_addr", "127.0.0.1:8310"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks parameter ranges. All violations are reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.RF.SampleRateHz <= 0 {
		problems = append(problems, "invalid sample rate")
	}
	if c.RF.RxFreqHz <= 0 || c.RF.TxFreqHz <= 0 {
		problems = append(problems, "invalid frequency")
	}
	switch c.SSB.Pattern {
	case "A", "B", "C", "D", "E":
	default:
		problems = append(problems, "invalid SSB pattern (need A/B/C/D/E)")
	}
	if c.SSB.SCSKHz != 15 && c.SSB.SCSKHz != 30 {
		problems = append(problems, "invalid SCS (need 15 or 30 kHz)")
	}
	if c.Attack.TargetPCI > 1007 {
		problems = append(problems, "invalid PCI (max 1007)")
	}
	if c.Attack.Coreset0IdxValue > 15 {
		problems = append(problems, "invalid CORESET0 idx (max 15)")
	}
	if c.Attack.SS0IdxValue > 15 {
		problems = append(problems, "invalid SS0 idx (max 15)")
	}
	if c.Operation.ScanWindowMs == 0 {
		problems = append(problems, "invalid scan window (must be > 0 ms)")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Summary logs the effective configuration, the startup echo of the tool.
func (c *Config) Summary(logger Logger) {
	logger.Info("rf configuration", map[string]any{
		"device":       c.RF.DeviceName,
		"args":         c.RF.DeviceArgs,
		"rx_freq_mhz":  c.RF.RxFreqHz / 1e6,
		"tx_freq_mhz":  c.RF.TxFreqHz / 1e6,
		"srate_mhz":    c.RF.SampleRateHz / 1e6,
		"rx_gain_db":   c.RF.RxGainDB,
		"tx_gain_db":   c.RF.TxGainDB,
	})
	logger.Info("ssb configuration", map[string]any{
		"pattern":   c.SSB.Pattern,
		"scs_khz":   c.SSB.SCSKHz,
		"period_ms": c.SSB.PeriodicityMs,
	})
	logger.Info("attack configuration", map[string]any{
		"target_pci":         c.Attack.TargetPCI,
		"scan_for_target":    c.Attack.ScanForTarget,
		"modify_cell_barred": c.Attack.ModifyCellBarred,
		"modify_coreset0":    c.Attack.ModifyCoreset0Idx,
		"continuous_tx":      c.Attack.ContinuousTx,
	})
	maxBursts := "unlimited"
	if c.Attack.MaxBursts > 0 {
		maxBursts = strconv.FormatUint(c.Attack.MaxBursts, 10)
	}
	logger.Info("burst control", map[string]any{
		"max_bursts":        maxBursts,
		"burst_interval_us": c.Attack.BurstIntervalUs,
		"burst_length_ms":   c.Attack.BurstLengthMs,
	})
}

// flatten turns {section: {key: value}} into "section.key" entries. Scalar
// top-level keys keep their own name.
func flatten(doc map[string]any) map[string]any {
	kv := make(map[string]any)
	for k, v := range doc {
		if section, ok := v.(map[string]any); ok {
			for sk, sv := range section {
				kv[k+"."+sk] = sv
			}
			continue
		}
		kv[k] = v
	}
	return kv
}

func getString(kv map[string]any, key, def string) string {
	v, ok := kv[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getFloat(kv map[string]any, key string, def float64) float64 {
	v, ok := kv[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

func getUint(kv map[string]any, key string, def uint32) uint32 {
	v, ok := kv[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint32(n)
		}
	case int64:
		if n >= 0 {
			return uint32(n)
		}
	case uint64:
		return uint32(n)
	case float64:
		if n >= 0 {
			return uint32(n)
		}
	case string:
		if u, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32); err == nil {
			return uint32(u)
		}
	}
	return def
}

func getBool(kv map[string]any, key string, def bool) bool {
	v, ok := kv[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	}
	return def
}
