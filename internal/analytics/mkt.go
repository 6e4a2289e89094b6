package analytics

import (
	"math"

	"subzero/internal/models"
)

// MKT 合规判定档位
const (
	MKTBandPass     = "PASS"
	MKTBandMarginal = "MARGINAL"
	MKTBandFail     = "FAIL"
)

// MKTParams 平均动力学温度计算参数
type MKTParams struct {
	DeltaH        float64 // 活化能 J/mol
	GasConst      float64 // 气体常数 J/(mol·K)
	CeilingC      float64 // 合规上限（°C）
	MarginalBandC float64 // 超上限该幅度以内 → MARGINAL（未设置时 2°C）
}

// MKTResult 平均动力学温度结果
type MKTResult struct {
	ValueC  float64 `json:"value_c"`
	Band    string  `json:"band"`
	Samples int     `json:"samples"`
}

// MKT 计算窗口内的平均动力学温度（Arrhenius 加权，非简单平均）
// MKT(K) = (ΔH/R) / -ln( Σ exp(-ΔH/(R·T_i)) / n )，T_i 为绝对温度
// 窗口内没有温度样本时返回 nil（数据不足，绝不返回拼凑值）
func MKT(readings []models.Reading, p MKTParams) *MKTResult {
	var sumExp float64
	n := 0
	for i := range readings {
		temp, ok := readings[i].Float("temp_cabinet")
		if !ok {
			continue
		}
		kelvin := temp + 273.15
		sumExp += math.Exp(-p.DeltaH / (p.GasConst * kelvin))
		n++
	}
	if n == 0 {
		return nil
	}

	mktKelvin := (p.DeltaH / p.GasConst) / -math.Log(sumExp/float64(n))
	valueC := mktKelvin - 273.15

	marginalBand := p.MarginalBandC
	if marginalBand <= 0 {
		marginalBand = 2.0
	}

	band := MKTBandFail
	switch {
	case valueC <= p.CeilingC:
		band = MKTBandPass
	case valueC <= p.CeilingC+marginalBand:
		band = MKTBandMarginal
	}

	return &MKTResult{ValueC: valueC, Band: band, Samples: n}
}
