// ssb-analyzer processes raw IQ captures offline to find and decode SSBs.
// Useful for debugging a setup without live RF hardware.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ssbspoof "github.com/rfsec/ssbspoof"
)

var (
	inputFile    string
	sampleRate   float64
	centerFreq   float64
	pattern      string
	scsKHz       uint32
	periodMs     uint32
	freqOffsetHz float64
	targetPCI    uint32
	maxSamples   uint32
	windowMs     uint32
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "ssb-analyzer",
	Short: "Decode SSBs from raw IQ capture files",
	Long: `ssb-analyzer slides overlapping detection windows (50% stride) over a
headerless complex-float32 capture and reports per-cell detection statistics.`,
	Example: `  ssb-analyzer -f rx_samples.dat -s 23.04e6 -c 1842.5e6
  ssb-analyzer -f samples.fc32 -s 23.04e6 -c 2.6e9 --pci 500 -v`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyze(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "input capture (complex float32)")
	rootCmd.Flags().Float64VarP(&sampleRate, "srate", "s", 0, "sample rate in Hz (e.g. 23.04e6)")
	rootCmd.Flags().Float64VarP(&centerFreq, "center-freq", "c", 0, "center frequency in Hz (e.g. 1842.5e6)")
	rootCmd.Flags().StringVarP(&pattern, "pattern", "p", "A", "SSB pattern (A-E)")
	rootCmd.Flags().Uint32Var(&scsKHz, "scs", 15, "subcarrier spacing in kHz")
	rootCmd.Flags().Uint32Var(&periodMs, "period", 20, "SSB periodicity in ms")
	rootCmd.Flags().Float64Var(&freqOffsetHz, "offset", 0, "SSB frequency offset in Hz")
	rootCmd.Flags().Uint32Var(&targetPCI, "pci", 0, "only report this PCI")
	rootCmd.Flags().Uint32Var(&maxSamples, "max-samples", 0, "max samples to process (0 = all)")
	rootCmd.Flags().Uint32Var(&windowMs, "window", 10, "search window size in ms")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.MarkFlagRequired("file")
	rootCmd.MarkFlagRequired("srate")
	rootCmd.MarkFlagRequired("center-freq")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func analyze(cmd *cobra.Command) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if centerFreq <= 0 {
		return fmt.Errorf("center frequency must be positive")
	}

	fmt.Println("\nSSB File Analyzer")
	fmt.Printf("\nconfig:\n")
	fmt.Printf("  file: %s\n", inputFile)
	fmt.Printf("  srate: %.2f MHz\n", sampleRate/1e6)
	fmt.Printf("  center: %.2f MHz\n", centerFreq/1e6)
	fmt.Printf("  pattern: %s\n", pattern)
	fmt.Printf("  SCS: %d kHz\n", scsKHz)
	fmt.Printf("  period: %d ms\n", periodMs)
	if freqOffsetHz != 0 {
		fmt.Printf("  offset: %.2f MHz\n", freqOffsetHz/1e6)
	}

	var filter *uint32
	if cmd.Flags().Changed("pci") {
		pci := targetPCI
		filter = &pci
		fmt.Printf("  target PCI: %d\n", pci)
	}

	fmt.Println("\nloading samples...")
	samples, err := ssbspoof.ReadSamples(inputFile, maxSamples)
	if err != nil {
		return err
	}

	detector, err := ssbspoof.OpenDetector(ssbspoof.SSBConfig{
		Pattern:       pattern,
		SCSKHz:        scsKHz,
		PeriodicityMs: periodMs,
		FreqOffsetHz:  freqOffsetHz,
	}, sampleRate, centerFreq)
	if err != nil {
		return err
	}
	defer detector.Close()

	report, err := ssbspoof.Analyze(samples, detector, ssbspoof.AnalyzerOptions{
		SampleRateHz: sampleRate,
		WindowMs:     windowMs,
		TargetPCI:    filter,
	})
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func printReport(report ssbspoof.AnalysisReport) {
	s := report.Samples
	fmt.Println("\n--- Sample Stats ---")
	fmt.Printf("  samples: %d\n", s.Count)
	fmt.Printf("  duration: %.3f ms\n", s.DurationMs)
	fmt.Printf("  max mag: %.4f\n", s.MaxMag)
	fmt.Printf("  avg power: %.2f dB\n", s.AvgPowerDB)

	if verbose {
		for i, d := range report.Detections {
			fmt.Printf("\n[+] SSB #%d at %.2f ms\n", i+1, d.TimeOffsetMs)
			fmt.Printf("    PCI: %d\n", d.PCI)
			fmt.Printf("    SSB idx: %d\n", d.SSBIdx)
			fmt.Printf("    SNR: %.1f dB\n", d.SNRdB)
			fmt.Printf("    RSRP: %.1f dBm\n", d.RSRPdBm)
			printMIB(d.MIB)
		}
	}

	fmt.Println("\n--- Results ---")
	fmt.Printf("  windows: %d\n", report.Windows)
	fmt.Printf("  SSBs found: %d\n", report.Found)

	if len(report.Cells) == 0 {
		fmt.Println("\n[!] no SSBs found")
		fmt.Println("\ntroubleshooting:")
		fmt.Println("  - check sample rate and frequency")
		fmt.Println("  - try a different SSB pattern")
		fmt.Println("  - need at least 10ms of samples")
		fmt.Println("  - check signal strength")
		return
	}

	fmt.Println("\n--- SSB Summary ---")
	for _, cell := range report.Cells {
		fmt.Printf("\nPCI %d:\n", cell.PCI)
		fmt.Printf("  count: %d\n", cell.Count)
		fmt.Printf("  avg SNR: %.1f dB\n", cell.AvgSNR)
		fmt.Printf("  avg RSRP: %.1f dBm\n", cell.AvgRSRP)
		fmt.Printf("  SSB idx: %d\n", cell.SSBIdx)
		if verbose {
			printMIB(cell.MIB)
		}
	}
}

func printMIB(mib ssbspoof.MIB) {
	fmt.Printf("    MIB: sfn=%d scs=%dkHz ssb_offset=%d coreset0=%d ss0=%d barred=%v intra_resel=%v\n",
		mib.SFN, mib.SCSCommonKHz, mib.SSBOffset, mib.Coreset0Idx, mib.SS0Idx,
		mib.CellBarred, mib.IntraFreqReselection)
}
