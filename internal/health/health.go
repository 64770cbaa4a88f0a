package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db        Pinger
	cacheUp   func() bool
	startedAt time.Time
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms,omitempty"`
}

// DetailedStatus adds cache and host figures for the admin dashboard.
type DetailedStatus struct {
	HealthStatus
	Cache         ComponentHealth `json:"cache"`
	Host          HostStats       `json:"host"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

// NewHealthChecker builds a checker. cacheUp may be nil when Redis is not
// configured; the cache is then reported as "disabled".
func NewHealthChecker(db Pinger, cacheUp func() bool) *HealthChecker {
	return &HealthChecker{db: db, cacheUp: cacheUp, startedAt: time.Now()}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed never fails on cache or host problems; only the database
// decides the overall status.
func (h *HealthChecker) CheckDetailed() DetailedStatus {
	out := DetailedStatus{
		HealthStatus:  h.CheckBasic(),
		Cache:         ComponentHealth{Status: "disabled"},
		Host:          ReadHostStats(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if h.cacheUp != nil {
		out.Cache.Status = "unhealthy"
		if h.cacheUp() {
			out.Cache.Status = "healthy"
		}
	}
	return out
}

func (h *HealthChecker) checkDatabase() ComponentHealth {
	if h.db == nil {
		return ComponentHealth{Status: "unhealthy"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

// ReadHostStats samples CPU, memory and root disk usage. Values the platform
// cannot report stay at zero.
func ReadHostStats() HostStats {
	var s HostStats
	if cpuPercents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		s.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = memStats.UsedPercent
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		s.DiskPercent = diskStats.UsedPercent
	}
	return s
}
