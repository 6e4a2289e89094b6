package analytics

import "subzero/internal/models"

// Params 分析引擎参数汇总（由配置映射而来）
type Params struct {
	MKT         MKTParams
	Efficiency  EfficiencyParams
	Night       NightWindow
	Vibration   VibrationParams
	Excursion   ExcursionParams
	NormalFault string
}

// Report 合规报告：对报告窗口内读数按需计算的聚合（纯函数，可重算）
// 数据不足的指标为 null，绝不编造数值
type Report struct {
	MKT             *MKTResult   `json:"mkt"`
	Efficiency      *Efficiency  `json:"efficiency"`
	NightStability  *NightResult `json:"night_stability"`
	VibrationHealth *VHIResult   `json:"vibration_health"`
	Excursions      []Excursion  `json:"excursions"`
	DoorOpenCount   int          `json:"door_open_count"`
	FaultCount      int          `json:"fault_count"`
	TotalReadings   int          `json:"total_readings"`
}

// BuildReport 对窗口内读数计算全部四项指标并打包
// previous 为紧邻的上一窗口（用于振动趋势对比），可为空
func BuildReport(readings, previous []models.Reading, p Params) Report {
	report := Report{
		MKT:             MKT(readings, p.MKT),
		Efficiency:      EfficiencyScore(readings, p.Efficiency),
		NightStability:  NightStability(readings, p.Night),
		VibrationHealth: VibrationHealth(readings, previous, p.Vibration),
		Excursions:      DetectExcursions(readings, p.Excursion),
		TotalReadings:   len(readings),
	}

	for i := range readings {
		r := &readings[i]
		if open, ok := r.Bool("door_open"); ok && open {
			report.DoorOpenCount++
		}
		if fault, ok := r.String("fault"); ok && fault != "" && fault != p.NormalFault {
			report.FaultCount++
		}
	}

	return report
}
