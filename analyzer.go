package ssbspoof

import (
	"fmt"
	"math"
	"sort"
)

// AnalyzerOptions controls offline file analysis.
type AnalyzerOptions struct {
	SampleRateHz float64
	WindowMs     uint32
	TargetPCI    *uint32
}

// AnalyzerDetection is a detection with its position in the file.
type AnalyzerDetection struct {
	DetectionResult
	TimeOffsetMs float64 `json:"timeOffsetMs"`
}

// CellStats aggregates detections of one cell across a file.
type CellStats struct {
	PCI     uint32  `json:"pci"`
	Count   int     `json:"count"`
	AvgSNR  float64 `json:"avgSNR"`
	AvgRSRP float64 `json:"avgRSRP"`
	SSBIdx  uint32  `json:"ssbIdx"`
	MIB     MIB     `json:"mib"`
}

// SampleStats summarizes a loaded capture.
type SampleStats struct {
	Count      int     `json:"count"`
	DurationMs float64 `json:"durationMs"`
	MaxMag     float64 `json:"maxMag"`
	AvgPowerDB float64 `json:"avgPowerDB"`
}

// AnalysisReport is the result of one offline pass over a capture.
type AnalysisReport struct {
	Samples    SampleStats         `json:"samples"`
	Windows    int                 `json:"windows"`
	Found      int                 `json:"found"`
	Detections []AnalyzerDetection `json:"detections"`
	Cells      []CellStats         `json:"cells"`
}

// MeasureSamples computes capture-level statistics.
func MeasureSamples(samples []complex64, srateHz float64) SampleStats {
	stats := SampleStats{Count: len(samples)}
	if len(samples) == 0 {
		return stats
	}
	var sumPower float64
	for _, s := range samples {
		re := float64(real(s))
		im := float64(imag(s))
		power := re*re + im*im
		sumPower += power
		if mag := math.Sqrt(power); mag > stats.MaxMag {
			stats.MaxMag = mag
		}
	}
	stats.DurationMs = float64(len(samples)) / srateHz * 1000.0
	stats.AvgPowerDB = 10.0 * math.Log10(sumPower/float64(len(samples))+rmsEpsilon)
	return stats
}

// Analyze slides overlapping detection windows (50% stride) over a capture
// and aggregates the detections per cell.
func Analyze(samples []complex64, detector Detector, opts AnalyzerOptions) (AnalysisReport, error) {
	windowSamples := int(opts.SampleRateHz * float64(opts.WindowMs) / 1000.0)
	if windowSamples <= 0 {
		return AnalysisReport{}, fmt.Errorf("%w: analysis needs a positive sample rate and window", ErrConfig)
	}

	report := AnalysisReport{Samples: MeasureSamples(samples, opts.SampleRateHz)}

	stride := windowSamples / 2
	if stride == 0 {
		stride = 1
	}

	for offset := 0; offset+windowSamples <= len(samples); offset += stride {
		report.Windows++

		res, err := detector.Search(samples[offset:offset+windowSamples], opts.TargetPCI)
		if err != nil || !res.Found {
			continue
		}

		report.Found++
		report.Detections = append(report.Detections, AnalyzerDetection{
			DetectionResult: res,
			TimeOffsetMs:    float64(offset) / opts.SampleRateHz * 1000.0,
		})
	}

	report.Cells = aggregateCells(report.Detections)
	return report, nil
}

func aggregateCells(detections []AnalyzerDetection) []CellStats {
	byPCI := make(map[uint32][]AnalyzerDetection)
	for _, d := range detections {
		byPCI[d.PCI] = append(byPCI[d.PCI], d)
	}

	cells := make([]CellStats, 0, len(byPCI))
	for pci, hits := range byPCI {
		stats := CellStats{
			PCI:    pci,
			Count:  len(hits),
			SSBIdx: hits[0].SSBIdx,
			MIB:    hits[0].MIB,
		}
		for _, h := range hits {
			stats.AvgSNR += h.SNRdB
			stats.AvgRSRP += h.RSRPdBm
		}
		stats.AvgSNR /= float64(len(hits))
		stats.AvgRSRP /= float64(len(hits))
		cells = append(cells, stats)
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].PCI < cells[j].PCI })
	return cells
}
