package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/google/uuid"
)

// MemoryAlertsRepo 数据库未启用时使用的内存报警仓库
type MemoryAlertsRepo struct {
	mu     sync.RWMutex
	alerts map[string]*models.Alert
	order  []string // 插入顺序
}

func NewMemoryAlertsRepo() *MemoryAlertsRepo {
	return &MemoryAlertsRepo{
		alerts: map[string]*models.Alert{},
	}
}

func (r *MemoryAlertsRepo) Create(_ context.Context, alert *models.Alert) (string, error) {
	if alert == nil {
		return "", fmt.Errorf("alert is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := alert.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := r.alerts[stored.ID]; exists {
		return "", fmt.Errorf("alert %s already exists", stored.ID)
	}
	r.alerts[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return stored.ID, nil
}

func (r *MemoryAlertsRepo) Update(_ context.Context, alert *models.Alert) error {
	if alert == nil || alert.ID == "" {
		return fmt.Errorf("alert_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return fmt.Errorf("alert %s not found", alert.ID)
	}
	r.alerts[alert.ID] = alert.Clone()
	return nil
}

func (r *MemoryAlertsRepo) FindByID(_ context.Context, id string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (r *MemoryAlertsRepo) FindDue(_ context.Context, status models.AlertStatus, field models.DeadlineField, now int64) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*models.Alert
	for _, id := range r.order {
		a := r.alerts[id]
		if a.Status == status && field.Of(a) <= now {
			due = append(due, a.Clone())
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return field.Of(due[i]) < field.Of(due[j])
	})
	return due, nil
}

func (r *MemoryAlertsRepo) ListRecent(_ context.Context, limit int) ([]*models.Alert, error) {
	limit = normalizeLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Alert, 0, min(limit, len(r.order)))
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.alerts[r.order[i]].Clone())
	}
	return out, nil
}
