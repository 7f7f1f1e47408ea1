package server

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/papaya09/Personal-Finance-Tracker/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	folioDB     *database.DB
	cacheDB     *database.DB
}

func NewSystemHandlers(log zerolog.Logger, dataDir string, folioDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		folioDB:     folioDB,
		cacheDB:     cacheDB,
	}
}

func (h *SystemHandlers) databases() []*database.DB {
	return []*database.DB{h.folioDB, h.cacheDB}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	CPUPercent    float64  `json:"cpu_percent"`
	RAMPercent    float64  `json:"ram_percent"`
	Databases     []DBInfo `json:"databases"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name   string  `json:"name"`
	SizeMB float64 `json:"size_mb"`
}

// HandleSystemStatus returns process uptime, host load and database sizes
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	databases := make([]DBInfo, 0, 2)
	for _, db := range h.databases() {
		info := DBInfo{Name: db.Name()}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}
		databases = append(databases, info)
	}

	writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Databases:     databases,
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval to avoid blocking the API call.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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
