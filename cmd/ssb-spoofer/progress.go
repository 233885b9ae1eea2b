package main

import (
	"fmt"
	"time"

	ssbspoof "github.com/rfsec/ssbspoof"
)

var scanFrames = []string{"|", "/", "-", "\\"}

// consoleProgress renders scan/transmit progress on the terminal. It is an
// event sink only; the pipeline never writes to the console itself.
type consoleProgress struct {
	scanDuration time.Duration
	maxBursts    uint64
	frame        int
}

func newConsoleProgress(scanDuration time.Duration, maxBursts uint64) *consoleProgress {
	return &consoleProgress{scanDuration: scanDuration, maxBursts: maxBursts}
}

func (p *consoleProgress) WindowScanned(windows uint64, elapsed time.Duration) {
	if windows%5 != 0 {
		return
	}
	fmt.Printf("\r  [%s] Scanning SSB... %.1fs / %.1fs    ",
		scanFrames[p.frame%len(scanFrames)], elapsed.Seconds(), p.scanDuration.Seconds())
	p.frame++
}

func (p *consoleProgress) DetectionFound(res ssbspoof.DetectionResult) {
	fmt.Printf("\r  [!] SSB FOUND | PCI: %d | SNR: %.1fdB | RSRP: %.1fdBm | SSB#%d     \n",
		res.PCI, res.SNRdB, res.RSRPdBm, res.SSBIdx)
}

func (p *consoleProgress) BurstSent(sent uint64, elapsed time.Duration) {
	if sent%50 != 0 {
		return
	}
	rate := 0.0
	if elapsed > 0 {
		rate = float64(sent) / elapsed.Seconds()
	}
	progress := ""
	if p.maxBursts > 0 {
		progress = fmt.Sprintf(" [%d%%]", sent*100/p.maxBursts)
	}
	fmt.Printf("\r  %s TX bursts: %7d | rate: %6.1f b/s | time: %5.1fs%s    ",
		scanFrames[p.frame%len(scanFrames)], sent, rate, elapsed.Seconds(), progress)
	p.frame++
}

func (p *consoleProgress) TransmitError(consecutive int, err error) {
	// Rate-limited: only the escalating tail of a failure run is interesting.
	if consecutive < 3 {
		return
	}
	fmt.Printf("\r  [!] transmit error x%d: %v    ", consecutive, err)
}

func (p *consoleProgress) SamplesCaptured(total uint64, captured time.Duration) {
	fmt.Printf("\r  capturing: %.1fs written    ", captured.Seconds())
}
