// Package predictor 跌倒概率评分（逻辑回归描述符或启发式兜底）
package predictor

import (
	"math"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// DefaultThreshold 描述符未给出阈值时的默认值
const DefaultThreshold = 0.6

// Descriptor 逻辑回归模型描述：weights = [w_accel_mag, w_gyro_mag]
type Descriptor struct {
	Weights   [2]float64
	Bias      float64
	Threshold float64
}

// Predictor 无状态评分器，初始化后只读，可并发使用
type Predictor struct {
	descriptor *Descriptor
}

// New 创建评分器；descriptor 为 nil 时使用启发式
func New(descriptor *Descriptor) *Predictor {
	if descriptor != nil {
		d := *descriptor
		descriptor = &d
	}
	return &Predictor{descriptor: descriptor}
}

// HasModel 是否加载了逻辑回归描述符
func (p *Predictor) HasModel() bool {
	return p.descriptor != nil
}

// Threshold 模型阈值（仅用于诊断）
func (p *Predictor) Threshold() float64 {
	if p.descriptor == nil {
		return DefaultThreshold
	}
	return p.descriptor.Threshold
}

// PredictFallProbability 返回 [0,1] 内的跌倒概率
func (p *Predictor) PredictFallProbability(s models.Sample) float64 {
	accelMag := s.AccelMagnitude()
	gyroMag := s.GyroMagnitude()

	if p.descriptor != nil {
		z := p.descriptor.Weights[0]*accelMag + p.descriptor.Weights[1]*gyroMag + p.descriptor.Bias
		return clamp01(sigmoid(z))
	}

	raw := math.Max(0, accelMag-12.0)/15.0 + math.Min(gyroMag, 300.0)/300.0*0.5
	return clamp01(raw)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// clamp01 NaN 视为 0
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
