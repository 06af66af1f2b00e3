package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// HealthReport je odpověď /health. RSS a CPU jsou jen tohoto procesu (na RPi se hodí vidět, kolik si bere).
type HealthReport struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MQTTConnected bool    `json:"mqtt_connected"`
	RSSMB         float64 `json:"rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
}

// HealthServer - jednoduchý HTTP endpoint pro Docker/K8s.
type HealthServer struct {
	started   time.Time
	connected func() bool
	proc      *process.Process
	logger    *slog.Logger
}

func NewHealthServer(connected func() bool, logger *slog.Logger) *HealthServer {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Bez statistik procesu healthcheck pořád funguje.
		logger.Warn("Nelze číst statistiky procesu", "error", err)
		proc = nil
	}
	return &HealthServer{started: time.Now(), connected: connected, proc: proc, logger: logger}
}

func (h *HealthServer) Report() HealthReport {
	r := HealthReport{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		MQTTConnected: h.connected(),
	}
	if !r.MQTTConnected {
		r.Status = "degraded"
	}
	if h.proc != nil {
		if mem, err := h.proc.MemoryInfo(); err == nil {
			r.RSSMB = float64(mem.RSS) / 1024.0 / 1024.0
		}
		if cpu, err := h.proc.CPUPercent(); err == nil {
			r.CPUPercent = cpu
		}
	}
	return r
}

func (h *HealthServer) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := h.Report()
	w.Header().Set("Content-Type", "application/json")
	if report.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Error("Chyba při zápisu health odpovědi", "error", err)
	}
}

// Run blokuje, dokud se ctx nezruší.
func (h *HealthServer) Run(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("GET /health", h)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("Health server běží", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Health server spadl", "error", err)
	}
}
