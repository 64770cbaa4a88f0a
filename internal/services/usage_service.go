package services

import (
	"context"
	"fmt"
	"math"

	"gestion-backend/internal/metrics"
)

// DatabaseSizer is satisfied by *repositories.BackupRepository.
type DatabaseSizer interface {
	DatabaseSize(ctx context.Context) (int64, error)
}

type StorageUsage struct {
	UsedBytes        int64  `json:"used_bytes"`
	LimitBytes       int64  `json:"limit_bytes"`
	UsedPercent      int    `json:"used_percent"`
	RemainingPercent int    `json:"remaining_percent"`
	UsedHuman        string `json:"used_human"`
	LimitHuman       string `json:"limit_human"`
}

type UsageService struct {
	sizer DatabaseSizer
	limit int64
}

func NewUsageService(sizer DatabaseSizer, limit int64) *UsageService {
	return &UsageService{sizer: sizer, limit: limit}
}

// RemainingPercent is round((limit-used)/limit*100), clamped to [0,100].
// A non-positive limit leaves nothing remaining.
func RemainingPercent(used, limit int64) int {
	if limit <= 0 {
		return 0
	}
	p := math.Round(float64(limit-used) / float64(limit) * 100)
	return clampPercent(p)
}

// UsedPercent is round(used/limit*100), clamped to [0,100].
func UsedPercent(used, limit int64) int {
	if limit <= 0 {
		return 100
	}
	return clampPercent(math.Round(float64(used) / float64(limit) * 100))
}

func clampPercent(p float64) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

// Usage reads the current database size and updates the storage gauges.
func (s *UsageService) Usage(ctx context.Context) (*StorageUsage, error) {
	used, err := s.sizer.DatabaseSize(ctx)
	if err != nil {
		return nil, err
	}
	u := &StorageUsage{
		UsedBytes:        used,
		LimitBytes:       s.limit,
		UsedPercent:      UsedPercent(used, s.limit),
		RemainingPercent: RemainingPercent(used, s.limit),
		UsedHuman:        FormatBytes(used),
		LimitHuman:       FormatBytes(s.limit),
	}
	metrics.DatabaseSizeBytes.Set(float64(used))
	metrics.StorageRemainingPercent.Set(float64(u.RemainingPercent))
	return u, nil
}

// FormatBytes prints sizes with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
