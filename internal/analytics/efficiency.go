package analytics

import "subzero/internal/models"

// 效率评分档位
const (
	EfficiencyExcellent = "excellent"
	EfficiencyGood      = "good"
	EfficiencyAttention = "attention_required"
)

// EfficiencyParams 效率评分基准
type EfficiencyParams struct {
	COPFullScore  float64 // COP 达到该值记满分（未设置时 3.0）
	PowerCeilingW float64 // 功率达到该值记零分（未设置时 1000W）
}

// Efficiency 效率评分结果（COP 为主、功率为辅的 0-100 加权分）
type Efficiency struct {
	Score       float64 `json:"score"`
	Grade       string  `json:"grade"`
	AvgCOP      float64 `json:"avg_cop"`
	AvgPowerW   float64 `json:"avg_power_w"`
	SampleCount int     `json:"sample_count"`
}

// EfficiencyScore 由窗口内平均功率与平均 COP 推导效率评分
// 没有任何 COP/功率样本时返回 nil，而不是 0 分
func EfficiencyScore(readings []models.Reading, p EfficiencyParams) *Efficiency {
	copFull := p.COPFullScore
	if copFull <= 0 {
		copFull = 3.0
	}
	powerCeiling := p.PowerCeilingW
	if powerCeiling <= 0 {
		powerCeiling = 1000.0
	}

	var sumCOP, sumPower float64
	copN, powerN := 0, 0

	for i := range readings {
		if cop, ok := readings[i].Float("cop"); ok {
			sumCOP += cop
			copN++
		}
		if power, ok := readings[i].Float("compressor_power_w"); ok {
			sumPower += power
			powerN++
		}
	}
	if copN == 0 && powerN == 0 {
		return nil
	}

	result := &Efficiency{SampleCount: max(copN, powerN)}

	copScore := 0.0
	if copN > 0 {
		result.AvgCOP = sumCOP / float64(copN)
		copScore = clamp(result.AvgCOP / copFull * 100)
	}
	powerScore := 0.0
	if powerN > 0 {
		result.AvgPowerW = sumPower / float64(powerN)
		powerScore = clamp(100 * (1 - result.AvgPowerW/powerCeiling))
	}

	switch {
	case copN > 0 && powerN > 0:
		result.Score = clamp(0.7*copScore + 0.3*powerScore)
	case copN > 0:
		result.Score = copScore
	default:
		result.Score = powerScore
	}

	switch {
	case result.Score >= 85:
		result.Grade = EfficiencyExcellent
	case result.Score >= 70:
		result.Grade = EfficiencyGood
	default:
		result.Grade = EfficiencyAttention
	}

	return result
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
