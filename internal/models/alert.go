package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// AlertStatus 报警状态（封闭枚举）
type AlertStatus int

const (
	StatusPendingSilent AlertStatus = iota + 1
	StatusPendingConfirm
	StatusSent
	StatusCancelled
)

var statusCodes = map[AlertStatus]string{
	StatusPendingSilent:  "PENDING_SILENT",
	StatusPendingConfirm: "PENDING_CONFIRM",
	StatusSent:           "SENT",
	StatusCancelled:      "CANCELLED",
}

// ParseAlertStatus 解析持久化的状态码
func ParseAlertStatus(code string) (AlertStatus, error) {
	for status, c := range statusCodes {
		if c == code {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown alert status: %q", code)
}

func (s AlertStatus) String() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return fmt.Sprintf("AlertStatus(%d)", int(s))
}

// Valid 是否为已定义的状态
func (s AlertStatus) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Terminal 终态（SENT / CANCELLED）不再迁移
func (s AlertStatus) Terminal() bool {
	return s == StatusSent || s == StatusCancelled
}

// CanTransitionTo 状态迁移表
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	switch s {
	case StatusPendingSilent:
		return next == StatusPendingConfirm || next == StatusSent || next == StatusCancelled
	case StatusPendingConfirm:
		return next == StatusSent || next == StatusCancelled
	case StatusSent, StatusCancelled:
		return false
	default:
		return false
	}
}

func (s AlertStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid alert status: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *AlertStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAlertStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value 实现 driver.Valuer
func (s AlertStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid alert status: %d", int(s))
	}
	return s.String(), nil
}

// Scan 实现 sql.Scanner
func (s *AlertStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into AlertStatus", src)
	}
}

// DeadlineField 按哪个截止时间查询到期报警
type DeadlineField int

const (
	DeadlineConfirmStartsAt DeadlineField = iota + 1
	DeadlineExpiryAt
)

func (f DeadlineField) String() string {
	switch f {
	case DeadlineConfirmStartsAt:
		return "confirm_starts_at"
	case DeadlineExpiryAt:
		return "expiry_at"
	default:
		return fmt.Sprintf("DeadlineField(%d)", int(f))
	}
}

// Of 返回报警对应字段的值
func (f DeadlineField) Of(a *Alert) int64 {
	if f == DeadlineExpiryAt {
		return a.ExpiryAt
	}
	return a.ConfirmStartsAt
}

// Alert 跌倒报警（对应 alerts 表）
type Alert struct {
	ID               string      `json:"id" db:"alert_id"`
	CreatedTimestamp int64       `json:"timestamp" db:"created_timestamp"` // 触发采样的时间戳（毫秒）
	Reason           string      `json:"reason" db:"reason"`
	Lat              *float64    `json:"lat,omitempty" db:"lat"`
	Lng              *float64    `json:"lng,omitempty" db:"lng"`
	Status           AlertStatus `json:"status" db:"status"`
	ConfirmStartsAt  int64       `json:"confirmStartsAt" db:"confirm_starts_at"` // epoch ms
	ExpiryAt         int64       `json:"expiryAt" db:"expiry_at"`                // epoch ms
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

// Clone 返回副本，避免调用方修改存储中的数据
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	c := *a
	if a.Lat != nil {
		lat := *a.Lat
		c.Lat = &lat
	}
	if a.Lng != nil {
		lng := *a.Lng
		c.Lng = &lng
	}
	return &c
}
