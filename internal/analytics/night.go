package analytics

import (
	"time"

	"subzero/internal/models"
)

// NightWindow 夜间（无人值守）时钟窗口，本地时间，允许跨午夜
type NightWindow struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Contains 判断时间点是否落在窗口内（[Start, End)，跨午夜时为 >=Start 或 <End）
func (w NightWindow) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	hour := t.In(loc).Hour()
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// NightResult 夜间稳定性结果
type NightResult struct {
	Score       float64 `json:"score"`
	MeanC       float64 `json:"mean_c"`
	Variance    float64 `json:"variance"`
	DoorEvents  int     `json:"door_events"`
	SampleCount int     `json:"sample_count"`
}

// NightStability 仅对夜间子窗口计算温度均值、方差与开门次数，
// 并推导与方差成反比的 0-100 稳定性评分
// 夜间子窗口内没有温度样本时返回 nil
func NightStability(readings []models.Reading, win NightWindow) *NightResult {
	var temps []float64
	doorEvents := 0

	for i := range readings {
		r := &readings[i]
		if !win.Contains(r.Timestamp) {
			continue
		}
		if temp, ok := r.Float("temp_cabinet"); ok {
			temps = append(temps, temp)
		}
		if open, ok := r.Bool("door_open"); ok && open {
			doorEvents++
		}
	}
	if len(temps) == 0 {
		return nil
	}

	mean := 0.0
	for _, t := range temps {
		mean += t
	}
	mean /= float64(len(temps))

	variance := 0.0
	for _, t := range temps {
		d := t - mean
		variance += d * d
	}
	variance /= float64(len(temps))

	return &NightResult{
		Score:       clamp(100 / (1 + variance)),
		MeanC:       mean,
		Variance:    variance,
		DoorEvents:  doorEvents,
		SampleCount: len(temps),
	}
}
