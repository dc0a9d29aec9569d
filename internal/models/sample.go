package models

import "math"

// Vec3 三轴读数
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude 欧几里得范数
func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sample 一次运动传感器采样（加速度 + 陀螺仪）
type Sample struct {
	Timestamp int64    `json:"timestamp"` // 毫秒
	Accel     Vec3     `json:"accel"`
	Gyro      Vec3     `json:"gyro"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Context   string   `json:"context,omitempty"` // 如 "face_down", "in_hand"
}

// AccelMagnitude 加速度模长
func (s Sample) AccelMagnitude() float64 {
	return s.Accel.Magnitude()
}

// GyroMagnitude 陀螺仪模长
func (s Sample) GyroMagnitude() float64 {
	return s.Gyro.Magnitude()
}

// SamplePayload HTTP / MQTT 上报的采样结构（字段均可缺省）
type SamplePayload struct {
	Timestamp *int64   `json:"timestamp"`
	Accel     *Vec3    `json:"accel"`
	Gyro      *Vec3    `json:"gyro"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Context   *string  `json:"context"`
}

// ToSample 转换为 Sample，缺失的时间戳使用 nowMs，缺失的轴取 0
func (p SamplePayload) ToSample(nowMs int64) Sample {
	s := Sample{
		Timestamp: nowMs,
		Lat:       p.Lat,
		Lng:       p.Lng,
	}
	if p.Timestamp != nil {
		s.Timestamp = *p.Timestamp
	}
	if p.Accel != nil {
		s.Accel = *p.Accel
	}
	if p.Gyro != nil {
		s.Gyro = *p.Gyro
	}
	if p.Context != nil {
		s.Context = *p.Context
	}
	return s
}
