package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/vidarr/internal/database"
	"github.com/jmylchreest/vidarr/internal/transcode"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *database.DB
	pool      *transcode.Pool
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string, db *database.DB, pool *transcode.Pool) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		db:        db,
		pool:      pool,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status        string            `json:"status" enum:"healthy,degraded"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	CPU           CPUInfo           `json:"cpu"`
	Memory        MemoryInfo        `json:"memory"`
	Sessions      SessionsInfo      `json:"sessions"`
	Checks        map[string]string `json:"checks"`
}

// CPUInfo reports core count and load averages.
type CPUInfo struct {
	Cores     int     `json:"cores"`
	Load1Min  float64 `json:"load_1min,omitempty"`
	Load5Min  float64 `json:"load_5min,omitempty"`
	Load15Min float64 `json:"load_15min,omitempty"`
}

// MemoryInfo reports system memory usage.
type MemoryInfo struct {
	TotalBytes  uint64  `json:"total_bytes,omitempty"`
	UsedBytes   uint64  `json:"used_bytes,omitempty"`
	UsedPercent float64 `json:"used_percent,omitempty"`
}

// SessionsInfo reports live transcode session usage.
type SessionsInfo struct {
	Active int `json:"active"`
}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns service health including system metrics and database status",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	status := "healthy"
	checks := map[string]string{"database": "ok"}
	if h.db == nil {
		checks["database"] = "not_configured"
	} else if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
		checks["database"] = err.Error()
	}

	cpu := CPUInfo{Cores: runtime.NumCPU()}
	if loadAvg, err := load.Avg(); err == nil && loadAvg != nil {
		cpu.Load1Min = loadAvg.Load1
		cpu.Load5Min = loadAvg.Load5
		cpu.Load15Min = loadAvg.Load15
	}

	var memory MemoryInfo
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		memory.TotalBytes = vm.Total
		memory.UsedBytes = vm.Used
		memory.UsedPercent = vm.UsedPercent
	}

	sessions := SessionsInfo{}
	if h.pool != nil {
		sessions.Active = h.pool.ActiveCount()
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPU:           cpu,
			Memory:        memory,
			Sessions:      sessions,
			Checks:        checks,
		},
	}, nil
}
