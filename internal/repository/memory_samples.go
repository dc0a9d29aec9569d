package repository

import (
	"context"
	"sync"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
)

// DefaultMemorySampleCapacity 内存采样仓库保留的最大条数
const DefaultMemorySampleCapacity = 1000

// MemorySamplesRepo 内存采样仓库（环形缓冲，超出容量丢弃最旧的）
type MemorySamplesRepo struct {
	mu       sync.RWMutex
	samples  []models.Sample
	capacity int
}

func NewMemorySamplesRepo(capacity int) *MemorySamplesRepo {
	if capacity <= 0 {
		capacity = DefaultMemorySampleCapacity
	}
	return &MemorySamplesRepo{capacity: capacity}
}

func (r *MemorySamplesRepo) Append(_ context.Context, sample models.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, sample)
	if over := len(r.samples) - r.capacity; over > 0 {
		r.samples = append(r.samples[:0:0], r.samples[over:]...)
	}
	return nil
}

func (r *MemorySamplesRepo) Recent(_ context.Context, n int) ([]models.Sample, error) {
	n = normalizeLimit(n)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Sample, 0, min(n, len(r.samples)))
	for i := len(r.samples) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.samples[i])
	}
	return out, nil
}
