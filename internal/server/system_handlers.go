package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/andrew-rosca/etrade-report/internal/database"
)

// SystemHandlers serves process, host and database health information and
// the manual sync triggers.
type SystemHandlers struct {
	broker    Broker
	jobs      JobRunner
	cacheDB   *database.DB
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(broker Broker, jobs JobRunner, cacheDB *database.DB, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		broker:    broker,
		jobs:      jobs,
		cacheDB:   cacheDB,
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.hostStats()

	response := map[string]interface{}{
		"status":         "ok",
		"service":        "etrade-report",
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
		"authorization": map[string]interface{}{
			"authorized": h.broker.IsAuthenticated(),
			"pending":    h.broker.HasPendingAuthorization(),
			"sandbox":    h.broker.Sandbox(),
		},
		"process": map[string]interface{}{
			"memory_mb":  h.processMemoryMB(),
			"goroutines": runtime.NumGoroutine(),
		},
		"system": map[string]interface{}{
			"cpu_percent":         cpuPercent,
			"memory_used_percent": memPercent,
		},
		"disk":      h.diskStats(),
		"databases": h.databaseStats(),
		"jobs":      h.jobs.Jobs(),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSyncPortfolio handles POST /api/system/sync/portfolio
func (h *SystemHandlers) HandleSyncPortfolio(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, "portfolio_sync", "Portfolio sync")
}

// HandleSyncTransactions handles POST /api/system/sync/transactions
func (h *SystemHandlers) HandleSyncTransactions(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, "transaction_sync", "Transaction sync")
}

// runJob runs a scheduler job inline and reports its outcome.
func (h *SystemHandlers) runJob(w http.ResponseWriter, name, label string) {
	h.log.Info().Str("job", name).Msg("Manual sync triggered")

	if err := h.jobs.RunNow(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual sync failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": label + " completed",
	})
}

// processMemoryMB reports this process's resident memory.
func (h *SystemHandlers) processMemoryMB() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to inspect process")
		return 0
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get process memory")
		return 0
	}

	return float64(memInfo.RSS) / 1024 / 1024
}

// hostStats reports host CPU and RAM usage percentages. The CPU sample uses
// a 100ms interval so the status call stays fast.
func (h *SystemHandlers) hostStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// diskStats reports usage of the filesystem holding the data directory.
func (h *SystemHandlers) diskStats() map[string]interface{} {
	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		return map[string]interface{}{"path": h.dataDir}
	}

	return map[string]interface{}{
		"path":         h.dataDir,
		"used_percent": usage.UsedPercent,
		"free_gb":      float64(usage.Free) / 1024 / 1024 / 1024,
	}
}

// databaseStats reports cache database statistics and the footprint of the
// per-account transaction ledgers.
func (h *SystemHandlers) databaseStats() map[string]interface{} {
	stats := map[string]interface{}{}

	if cacheStats, err := h.cacheDB.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get cache database stats")
	} else {
		stats["cache"] = map[string]interface{}{
			"size_mb":        float64(cacheStats.SizeBytes) / 1024 / 1024,
			"wal_mb":         float64(cacheStats.WALSizeBytes) / 1024 / 1024,
			"page_count":     cacheStats.PageCount,
			"page_size":      cacheStats.PageSize,
			"freelist_count": cacheStats.FreelistCount,
		}
	}

	count, sizeMB := h.ledgerFootprint()
	stats["ledgers"] = map[string]interface{}{
		"count":   count,
		"size_mb": sizeMB,
	}

	return stats
}

// ledgerFootprint counts the per-account ledger files and their total size.
func (h *SystemHandlers) ledgerFootprint() (int, float64) {
	matches, err := filepath.Glob(filepath.Join(h.dataDir, "txledger_*.db"))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to scan ledger files")
		return 0, 0
	}

	var totalSize int64
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil {
			totalSize += info.Size()
		}
	}

	return len(matches), float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
