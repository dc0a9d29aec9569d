package evaluator

import (
	"math"
	"sort"
	"strings"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// 设备跌落判别参数
const (
	DropWindowMs        int64 = 4000 // 回看窗口
	DropPostImpactCount       = 4    // 冲击后取样数
	DropPeakAccel             = 18.0 // 高冲击
	DropMaxPostVarAccel       = 0.4  // 冲击后加速度方差上限
	DropMaxPostVarGyro        = 25.0 // 冲击后陀螺仪方差上限
)

// surfaceMarkers 表示设备平放在表面上的上下文标记
var surfaceMarkers = []string{"face_down", "still_side"}

// DropFeatures 跌落判别的中间特征（用于诊断日志）
type DropFeatures struct {
	WindowSize  int
	PeakAccel   float64
	ImpactIndex int
	PostVarA    float64
	PostVarG    float64
}

// DetectDrop 判断当前采样是否像"手机掉落"而非人体跌倒
// 任何异常（空窗口、NaN、panic）都返回 false
func DetectDrop(current models.Sample, history []models.Sample) (dropLike bool) {
	defer func() {
		if r := recover(); r != nil {
			dropLike = false
		}
	}()

	f, ok := ExtractDropFeatures(current, history)
	if !ok {
		return false
	}

	highImpact := f.PeakAccel > DropPeakAccel
	quicklyStill := f.PostVarA < DropMaxPostVarAccel && f.PostVarG < DropMaxPostVarGyro
	return highImpact && quicklyStill && hasAny(current.Context, surfaceMarkers)
}

// ExtractDropFeatures 计算窗口内的峰值冲击与冲击后方差
// 窗口与 Recent 同序（最新在前），"冲击后"指窗口中排在峰值之后的采样
func ExtractDropFeatures(current models.Sample, history []models.Sample) (DropFeatures, bool) {
	window := dropWindow(current, history)
	if len(window) == 0 {
		return DropFeatures{}, false
	}

	f := DropFeatures{WindowSize: len(window), ImpactIndex: -1}
	for i, s := range window {
		if aMag := s.AccelMagnitude(); aMag > f.PeakAccel {
			f.PeakAccel = aMag
			f.ImpactIndex = i
		}
	}

	if f.ImpactIndex >= 0 {
		start := f.ImpactIndex + 1
		end := start + DropPostImpactCount
		if end > len(window) {
			end = len(window)
		}
		if n := end - start; n >= 2 {
			a := make([]float64, 0, n)
			g := make([]float64, 0, n)
			for _, s := range window[start:end] {
				a = append(a, s.AccelMagnitude())
				g = append(g, s.GyroMagnitude())
			}
			f.PostVarA = Variance(a)
			f.PostVarG = Variance(g)
		}
	}

	if !finite(f.PeakAccel) || !finite(f.PostVarA) || !finite(f.PostVarG) {
		return DropFeatures{}, false
	}
	return f, true
}

// dropWindow 取 [current-4000, current] 内的历史采样，最新在前；
// 历史中没有当前时间戳时把当前采样放在最前
func dropWindow(current models.Sample, history []models.Sample) []models.Sample {
	cutoff := current.Timestamp - DropWindowMs
	window := make([]models.Sample, 0, len(history)+1)
	hasCurrent := false
	for _, s := range history {
		if s.Timestamp == current.Timestamp {
			hasCurrent = true
			break
		}
	}
	if !hasCurrent {
		window = append(window, current)
	}
	for _, s := range history {
		if s.Timestamp < cutoff || s.Timestamp > current.Timestamp {
			continue
		}
		window = append(window, s)
	}

	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp > window[j].Timestamp
	})
	return window
}

// Variance 总体方差；少于两个值时为 0
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func hasAny(ctx string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(ctx, m) {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
