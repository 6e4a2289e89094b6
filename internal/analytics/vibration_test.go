package analytics

import (
	"testing"

	"subzero/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVibrationParams = VibrationParams{
	AnomalyDeviation: 2.0,
	RollingWindow:    10,
	TrendTolerance:   5.0,
}

func accelReadings(samples [][3]float64) []models.Reading {
	readings := make([]models.Reading, 0, len(samples))
	for _, s := range samples {
		readings = append(readings, models.Reading{
			DeviceID: "TRUCK_001",
			Fields: map[string]interface{}{
				"accel_x": s[0],
				"accel_y": s[1],
				"accel_z": s[2],
			},
		})
	}
	return readings
}

func steadySamples(n int) [][3]float64 {
	samples := make([][3]float64, n)
	for i := range samples {
		samples[i] = [3]float64{0.1, 0.1, 1.0}
	}
	return samples
}

// 无波动 → 指数接近满分；剧烈波动 → 指数更低
func TestVibrationIndexMonotonicInVariance(t *testing.T) {
	steady := VibrationHealth(accelReadings(steadySamples(20)), nil, testVibrationParams)
	require.NotNil(t, steady)
	assert.InDelta(t, 100.0, steady.Index, 1e-9)
	assert.InDelta(t, 0.0, steady.AnomalyRate, 1e-9)

	noisy := make([][3]float64, 20)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i] = [3]float64{0.1, 0.1, 1.0}
		} else {
			noisy[i] = [3]float64{2.0, 3.0, 4.0}
		}
	}
	noisyResult := VibrationHealth(accelReadings(noisy), nil, testVibrationParams)
	require.NotNil(t, noisyResult)

	assert.Less(t, noisyResult.Index, steady.Index)
	assert.GreaterOrEqual(t, noisyResult.Index, 0.0)
}

func TestVibrationStatistics(t *testing.T) {
	result := VibrationHealth(accelReadings([][3]float64{
		{3, 4, 0}, // 模 5
		{0, 0, 5}, // 模 5
	}), nil, testVibrationParams)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.SampleCount)
	assert.InDelta(t, 5.0, result.PeakMag, 1e-9)
	assert.InDelta(t, 1.5, result.AvgX, 1e-9)
	assert.InDelta(t, 2.0, result.AvgY, 1e-9)
	assert.InDelta(t, 2.5, result.AvgZ, 1e-9)
	assert.InDelta(t, 0.0, result.StdDev, 1e-9)
}

// 趋势由当前窗口与上一窗口的指数对比得出
func TestVibrationTrend(t *testing.T) {
	steady := accelReadings(steadySamples(20))

	noisy := make([][3]float64, 20)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i] = [3]float64{0.1, 0.1, 1.0}
		} else {
			noisy[i] = [3]float64{3.0, 3.0, 5.0}
		}
	}
	noisyReadings := accelReadings(noisy)

	// 上一窗口平稳、当前窗口剧烈 → degrading
	result := VibrationHealth(noisyReadings, steady, testVibrationParams)
	require.NotNil(t, result)
	assert.Equal(t, TrendDegrading, result.Trend)

	// 反过来 → improving
	result = VibrationHealth(steady, noisyReadings, testVibrationParams)
	require.NotNil(t, result)
	assert.Equal(t, TrendImproving, result.Trend)

	// 两个窗口相近 → stable
	result = VibrationHealth(steady, steady, testVibrationParams)
	require.NotNil(t, result)
	assert.Equal(t, TrendStable, result.Trend)

	// 没有上一窗口 → stable
	result = VibrationHealth(steady, nil, testVibrationParams)
	require.NotNil(t, result)
	assert.Equal(t, TrendStable, result.Trend)

	// 容差放宽到覆盖整个指数区间 → 同样的窗口对比变为 stable
	loose := testVibrationParams
	loose.TrendTolerance = 200.0
	result = VibrationHealth(noisyReadings, steady, loose)
	require.NotNil(t, result)
	assert.Equal(t, TrendStable, result.Trend)

	// 未设置容差时回落到默认值，判定不变
	unset := testVibrationParams
	unset.TrendTolerance = 0
	result = VibrationHealth(noisyReadings, steady, unset)
	require.NotNil(t, result)
	assert.Equal(t, TrendDegrading, result.Trend)
}

// 没有三轴样本 → 缺失值
func TestVibrationInsufficientData(t *testing.T) {
	assert.Nil(t, VibrationHealth(nil, nil, testVibrationParams))

	partial := []models.Reading{{
		DeviceID: "X",
		Fields:   map[string]interface{}{"accel_x": 0.1, "accel_y": 0.2},
	}}
	assert.Nil(t, VibrationHealth(partial, nil, testVibrationParams))
}
