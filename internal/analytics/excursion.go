package analytics

import (
	"time"

	"subzero/internal/models"
)

// 偏移严重度档位
const (
	ExcursionMinor    = "minor"
	ExcursionModerate = "moderate"
	ExcursionCritical = "critical"
)

// ExcursionParams 偏移检测参数
type ExcursionParams struct {
	ThresholdC    float64 // 严格大于该值才算偏移
	ModerateBandC float64 // 峰值超出阈值该幅度以上 → moderate
	CriticalBandC float64 // 峰值超出阈值该幅度以上 → critical
}

// Excursion 一段监测值连续超过阈值的极大区间
type Excursion struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
	PeakValue       float64   `json:"peak_value"`
	Severity        string    `json:"severity"`
}

// DetectExcursions 单次线性扫描有序读数序列，找出全部极大超阈值连续段
// 恰好等于阈值不算偏移（严格大于）；窗口结束时仍未回落的段在最后一个时间戳处闭合
func DetectExcursions(readings []models.Reading, p ExcursionParams) []Excursion {
	var excursions []Excursion
	var runStart, runEnd time.Time
	var runPeak float64
	inRun := false

	for i := range readings {
		r := &readings[i]
		temp, ok := r.Float("temp_cabinet")
		if !ok {
			continue
		}

		if temp > p.ThresholdC {
			if !inRun {
				inRun = true
				runStart = r.Timestamp
				runPeak = temp
			} else if temp > runPeak {
				runPeak = temp
			}
			runEnd = r.Timestamp
			continue
		}

		if inRun {
			excursions = append(excursions, newExcursion(runStart, runEnd, runPeak, p))
			inRun = false
		}
	}

	// 窗口末尾仍处于偏移中：在最后一个可用时间戳处闭合，不向后外推
	if inRun {
		excursions = append(excursions, newExcursion(runStart, runEnd, runPeak, p))
	}

	return excursions
}

func newExcursion(start, end time.Time, peak float64, p ExcursionParams) Excursion {
	severity := ExcursionMinor
	over := peak - p.ThresholdC
	switch {
	case over >= p.CriticalBandC:
		severity = ExcursionCritical
	case over >= p.ModerateBandC:
		severity = ExcursionModerate
	}

	return Excursion{
		Start:           start,
		End:             end,
		DurationMinutes: end.Sub(start).Minutes(),
		PeakValue:       peak,
		Severity:        severity,
	}
}
