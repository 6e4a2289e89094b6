package analytics

import (
	"math"

	"subzero/internal/models"
)

// 振动趋势标签
const (
	TrendStable    = "stable"
	TrendDegrading = "degrading"
	TrendImproving = "improving"
)

// VibrationParams 振动健康指数参数
type VibrationParams struct {
	AnomalyDeviation float64 // 偏离滚动均值多少个标准差视为异常
	RollingWindow    int     // 滚动均值窗口大小
	TrendTolerance   float64 // 趋势判定的指数变化容差（未设置时 5.0）
}

// VHIResult 振动健康指数结果
type VHIResult struct {
	Index       float64 `json:"index"`
	Trend       string  `json:"trend"`
	AvgX        float64 `json:"avg_x"`
	AvgY        float64 `json:"avg_y"`
	AvgZ        float64 `json:"avg_z"`
	PeakMag     float64 `json:"peak_magnitude"`
	StdDev      float64 `json:"std_dev"`
	AnomalyRate float64 `json:"anomaly_rate"`
	SampleCount int     `json:"sample_count"`
}

// VibrationHealth 由三轴加速度样本计算振动健康指数
// 方差与异常率越低指数越高（单调映射）；趋势由当前窗口与上一窗口的指数对比得出
// 窗口内没有三轴样本时返回 nil
func VibrationHealth(current, previous []models.Reading, p VibrationParams) *VHIResult {
	result := vibrationIndex(current, p)
	if result == nil {
		return nil
	}

	tolerance := p.TrendTolerance
	if tolerance <= 0 {
		tolerance = 5.0
	}

	result.Trend = TrendStable
	if prev := vibrationIndex(previous, p); prev != nil {
		switch {
		case result.Index < prev.Index-tolerance:
			result.Trend = TrendDegrading
		case result.Index > prev.Index+tolerance:
			result.Trend = TrendImproving
		}
	}
	return result
}

func vibrationIndex(readings []models.Reading, p VibrationParams) *VHIResult {
	var xs, ys, zs, mags []float64

	for i := range readings {
		r := &readings[i]
		x, okX := r.Float("accel_x")
		y, okY := r.Float("accel_y")
		z, okZ := r.Float("accel_z")
		if !okX || !okY || !okZ {
			continue
		}
		xs = append(xs, math.Abs(x))
		ys = append(ys, math.Abs(y))
		zs = append(zs, math.Abs(z))
		mags = append(mags, math.Sqrt(x*x+y*y+z*z))
	}
	if len(mags) == 0 {
		return nil
	}

	peak := 0.0
	for _, m := range mags {
		if m > peak {
			peak = m
		}
	}

	mean := meanOf(mags)
	variance := 0.0
	for _, m := range mags {
		d := m - mean
		variance += d * d
	}
	variance /= float64(len(mags))
	stdDev := math.Sqrt(variance)

	anomalyRate := rollingAnomalyRate(mags, stdDev, p)

	// 稳定性与异常率共同压低指数：无波动且无异常时为 100
	index := clamp(100 / (1 + stdDev) * (1 - anomalyRate))

	return &VHIResult{
		Index:       index,
		AvgX:        meanOf(xs),
		AvgY:        meanOf(ys),
		AvgZ:        meanOf(zs),
		PeakMag:     peak,
		StdDev:      stdDev,
		AnomalyRate: anomalyRate,
		SampleCount: len(mags),
	}
}

// rollingAnomalyRate 统计偏离滚动均值超过 deviation·σ 的样本占比
func rollingAnomalyRate(mags []float64, stdDev float64, p VibrationParams) float64 {
	if stdDev == 0 {
		return 0
	}
	window := p.RollingWindow
	if window <= 0 {
		window = 10
	}

	anomalies := 0
	for i, m := range mags {
		start := i - window
		if start < 0 {
			start = 0
		}
		rolling := meanOf(mags[start : i+1])
		if math.Abs(m-rolling) > p.AnomalyDeviation*stdDev {
			anomalies++
		}
	}
	return float64(anomalies) / float64(len(mags))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
