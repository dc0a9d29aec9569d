package evaluator

import (
	"fmt"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// 规则阈值
const (
	RuleAccel       = 16.0
	RuleGyro        = 120.0
	HybridAccel     = 13.0
	HybridGyro      = 80.0
	HybridMLScore   = 0.55
	DropMLScore     = 0.65
	DropMinAccel    = 14.5
	VeryStrongAccel = 20.0
	VeryStrongML    = 0.80
	VeryStrongGyro  = 110.0
)

// Decision 分类结果
type Decision struct {
	AccelMag float64
	GyroMag  float64
	MLScore  float64
	RuleHit  bool
	DropLike bool
	Alert    bool
}

// Classify 融合规则阈值、ML 评分和跌落标记，得出是否报警
func Classify(s models.Sample, dropLike bool, mlScore float64) Decision {
	d := Decision{
		AccelMag: s.AccelMagnitude(),
		GyroMag:  s.GyroMagnitude(),
		MLScore:  mlScore,
		DropLike: dropLike,
	}

	d.RuleHit = d.AccelMag > RuleAccel || d.GyroMag > RuleGyro
	d.Alert = d.RuleHit ||
		(d.AccelMag > HybridAccel && mlScore > HybridMLScore) ||
		(d.GyroMag > HybridGyro && mlScore > HybridMLScore)

	// 像设备跌落时需要更强的佐证
	if d.Alert && dropLike {
		d.Alert = (mlScore > DropMLScore || d.RuleHit) && d.AccelMag > DropMinAccel
	}
	return d
}

// VeryStrong 极强信号
func (d Decision) VeryStrong() bool {
	return d.AccelMag > VeryStrongAccel ||
		(d.MLScore > VeryStrongML && (d.AccelMag > RuleAccel || d.GyroMag > VeryStrongGyro))
}

// Reason 诊断字符串
func (d Decision) Reason() string {
	reason := fmt.Sprintf("Hybrid detection: rule=%t, mlScore=%.2f", d.RuleHit, d.MLScore)
	if d.DropLike {
		reason += ", dropLike=true"
	}
	return reason
}
