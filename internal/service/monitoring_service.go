package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"gorm.io/gorm"

	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/worker"
)

// SystemMetrics is the snapshot returned by /v1/monitoring/metrics.
type SystemMetrics struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	MemoryUsedMB  uint64  `json:"memoryUsedMb"`
	DiskPercent   float64 `json:"diskPercent"`
	DiskFreeGB    uint64  `json:"diskFreeGb"`

	DatabaseOK   bool   `json:"databaseOk"`
	RedisOK      bool   `json:"redisOk"`
	SefazBreaker string `json:"sefazBreaker"`

	FiscalDLQ int64     `json:"fiscalDlq"`
	EmailDLQ  int64     `json:"emailDlq"`
	SampledAt time.Time `json:"sampledAt"`
}

type MonitoringService interface {
	Snapshot(ctx context.Context) *SystemMetrics
}

type monitoringService struct {
	db  *gorm.DB
	rdb *redis.Client
	cb  *infra.CircuitBreaker
}

func NewMonitoringService(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) MonitoringService {
	return &monitoringService{db: db, rdb: rdb, cb: cb}
}

// Snapshot collects host and dependency health. Collection errors leave the
// corresponding fields at their zero values rather than failing the request.
func (s *monitoringService) Snapshot(ctx context.Context) *SystemMetrics {
	metrics := &SystemMetrics{
		SefazBreaker: s.cb.State().String(),
		SampledAt:    time.Now(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		metrics.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		metrics.MemoryPercent = vm.UsedPercent
		metrics.MemoryUsedMB = vm.Used / 1024 / 1024
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		metrics.DiskPercent = usage.UsedPercent
		metrics.DiskFreeGB = usage.Free / 1024 / 1024 / 1024
	}

	if sqlDB, err := s.db.DB(); err == nil {
		metrics.DatabaseOK = sqlDB.PingContext(ctx) == nil
	}
	if s.rdb != nil {
		metrics.RedisOK = s.rdb.Ping(ctx).Err() == nil
		if n, err := worker.DLQLength(ctx, s.rdb, worker.QueueFiscal); err == nil {
			metrics.FiscalDLQ = n
		}
		if n, err := worker.DLQLength(ctx, s.rdb, worker.QueueEmail); err == nil {
			metrics.EmailDLQ = n
		}
	}
	return metrics
}
