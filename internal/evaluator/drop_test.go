package evaluator

import (
	"math"
	"testing"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(ts int64, accel, gyro float64, ctx string) models.Sample {
	return models.Sample{
		Timestamp: ts,
		Accel:     models.Vec3{X: accel},
		Gyro:      models.Vec3{X: gyro},
		Context:   ctx,
	}
}

// dropHistory 历史按最新在前：当前采样、峰值 19.0、两个平稳采样
func dropHistory(ctx string) (models.Sample, []models.Sample) {
	current := at(11_000, 10.2, 14, ctx)
	impact := at(10_500, 19.0, 200, "")
	still1 := at(10_000, 9.6, 10, "")
	still2 := at(9_500, 10.2, 14, "")
	return current, []models.Sample{current, impact, still1, still2}
}

func TestDetectDrop_ImpactThenStillOnSurface(t *testing.T) {
	current, history := dropHistory("face_down")

	f, ok := ExtractDropFeatures(current, history)
	require.True(t, ok)
	assert.Equal(t, 4, f.WindowSize)
	assert.Equal(t, 1, f.ImpactIndex)
	assert.InDelta(t, 19.0, f.PeakAccel, 1e-9)
	assert.InDelta(t, 0.09, f.PostVarA, 1e-9)
	assert.InDelta(t, 4.0, f.PostVarG, 1e-9)

	assert.True(t, DetectDrop(current, history))

	// ruleHit=false、mlScore=0.5 时最终不报警
	d := Classify(current, true, 0.5)
	assert.False(t, d.RuleHit)
	assert.False(t, d.Alert)
}

func TestDetectDrop_EachConditionRequired(t *testing.T) {
	t.Run("no surface context", func(t *testing.T) {
		current, history := dropHistory("in_hand")
		assert.False(t, DetectDrop(current, history))
	})

	t.Run("still_side context", func(t *testing.T) {
		current, history := dropHistory("still_side")
		assert.True(t, DetectDrop(current, history))
	})

	t.Run("impact too weak", func(t *testing.T) {
		current, history := dropHistory("face_down")
		history[1] = at(10_500, 18.0, 200, "")
		assert.False(t, DetectDrop(current, history))
	})

	t.Run("not settling in accel", func(t *testing.T) {
		current, history := dropHistory("face_down")
		history[2] = at(10_000, 5.0, 10, "")
		assert.False(t, DetectDrop(current, history))
	})

	t.Run("not settling in gyro", func(t *testing.T) {
		current, history := dropHistory("face_down")
		history[2] = at(10_000, 9.6, 100, "")
		assert.False(t, DetectDrop(current, history))
	})
}

func TestDetectDrop_WindowBounds(t *testing.T) {
	current, history := dropHistory("face_down")
	// 窗口外（早于 current-4000）的更强冲击不参与
	history = append(history, at(current.Timestamp-4001, 40.0, 0, ""))
	// 晚于当前时间戳的采样也不参与
	history = append(history, at(current.Timestamp+1, 50.0, 0, ""))

	f, ok := ExtractDropFeatures(current, history)
	require.True(t, ok)
	assert.InDelta(t, 19.0, f.PeakAccel, 1e-9)
	assert.True(t, DetectDrop(current, history))

	// 恰好在边界上的采样参与
	edge := at(current.Timestamp-4000, 30.0, 0, "")
	f, ok = ExtractDropFeatures(current, append(history, edge))
	require.True(t, ok)
	assert.InDelta(t, 30.0, f.PeakAccel, 1e-9)
}

func TestDetectDrop_CurrentAddedWhenMissingFromHistory(t *testing.T) {
	current := at(5_000, 25.0, 0, "face_down")

	f, ok := ExtractDropFeatures(current, nil)
	require.True(t, ok)
	assert.Equal(t, 1, f.WindowSize)
	assert.InDelta(t, 25.0, f.PeakAccel, 1e-9)
	// 冲击之后没有采样，方差为 0
	assert.Equal(t, 0.0, f.PostVarA)
	assert.Equal(t, 0.0, f.PostVarG)
}

func TestDetectDrop_CurrentPeakAfterMovementIsNotDrop(t *testing.T) {
	history := []models.Sample{
		at(4_500, 5.0, 0, "moving"),
		at(4_000, 12.0, 40, "moving"),
		at(3_500, 3.0, 80, "moving"),
		at(3_000, 14.0, 120, "moving"),
	}
	current := at(5_000, 21.0, 0, "face_down")

	f, ok := ExtractDropFeatures(current, append([]models.Sample{current}, history...))
	require.True(t, ok)
	assert.Equal(t, 5, f.WindowSize)
	assert.Equal(t, 0, f.ImpactIndex)
	assert.Greater(t, f.PostVarA, DropMaxPostVarAccel)
	assert.Greater(t, f.PostVarG, DropMaxPostVarGyro)

	// 当前采样尚未入库时结果相同
	assert.False(t, DetectDrop(current, history))
	assert.False(t, DetectDrop(current, append([]models.Sample{current}, history...)))
}

func TestDetectDrop_UnorderedHistoryIsNormalized(t *testing.T) {
	current, history := dropHistory("face_down")
	reversed := []models.Sample{history[3], history[2], history[1], history[0]}

	f, ok := ExtractDropFeatures(current, reversed)
	require.True(t, ok)
	assert.Equal(t, 1, f.ImpactIndex)
	assert.True(t, DetectDrop(current, reversed))
}

func TestDetectDrop_PostImpactCappedAtFour(t *testing.T) {
	history := []models.Sample{
		at(1_500, 20.0, 0, ""),
		at(1_400, 9.8, 1, ""),
		at(1_300, 9.8, 1, ""),
		at(1_200, 9.8, 1, ""),
		at(1_100, 9.8, 1, ""),
		at(1_000, 0.0, 300, ""), // 第 5 个冲击后采样，不计入
	}
	current := at(1_600, 9.8, 1, "face_down")

	f, ok := ExtractDropFeatures(current, history)
	require.True(t, ok)
	assert.InDelta(t, 0.0, f.PostVarA, 1e-12)
	assert.InDelta(t, 0.0, f.PostVarG, 1e-12)
	assert.True(t, DetectDrop(current, history))
}

func TestDetectDrop_SinglePostImpactSampleHasZeroVariance(t *testing.T) {
	history := []models.Sample{
		at(1_000, 20.0, 0, ""),
		at(500, 3.0, 90, ""),
	}
	current := at(1_500, 9.8, 0, "face_down")

	f, ok := ExtractDropFeatures(current, history)
	require.True(t, ok)
	assert.Equal(t, 1, f.ImpactIndex)
	assert.Equal(t, 0.0, f.PostVarA)
	assert.True(t, DetectDrop(current, history))
}

func TestDetectDrop_NonFiniteFailsSafe(t *testing.T) {
	current := at(1_000, math.NaN(), 0, "face_down")
	assert.False(t, DetectDrop(current, nil))

	current = at(1_000, math.Inf(1), 0, "face_down")
	assert.False(t, DetectDrop(current, nil))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{3}))
	assert.InDelta(t, 1.0, Variance([]float64{1, 3}), 1e-12)
	assert.InDelta(t, 2.0, Variance([]float64{1, 2, 3, 4, 5}), 1e-12)
}
