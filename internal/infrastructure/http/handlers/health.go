package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/yuzvak/storefront-service/internal/application/ports"
	"github.com/yuzvak/storefront-service/internal/infrastructure/http/response"
	"github.com/yuzvak/storefront-service/internal/pkg/logger"
)

type HealthHandler struct {
	store     ports.CartStore
	backend   string
	log       *logger.Logger
	startTime time.Time
}

func NewHealthHandler(store ports.CartStore, backend string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		backend:   backend,
		log:       log,
		startTime: time.Now().UTC(),
	}
}

type MemoryMetrics struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

type ServicesStatus struct {
	App            string `json:"app"`
	SessionBackend string `json:"session_backend"`
	SessionStore   string `json:"session_store"`
}

type HealthData struct {
	ServicesStatus ServicesStatus `json:"services_status"`
	Uptime         string         `json:"uptime"`
	Memory         MemoryMetrics  `json:"memory"`
	Goroutines     int            `json:"goroutines"`
}

func (h *HealthHandler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storeStatus := "UP"
		statusCode := http.StatusOK
		status := response.StatusSuccess
		if err := h.store.Ping(ctx); err != nil {
			h.log.Warn("Session store health check failed", "backend", h.backend, "error", err)
			storeStatus = "DOWN"
			statusCode = http.StatusServiceUnavailable
			status = response.StatusServiceUnavailable
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		data := HealthData{
			ServicesStatus: ServicesStatus{
				App:            "UP",
				SessionBackend: h.backend,
				SessionStore:   storeStatus,
			},
			Uptime: time.Since(h.startTime).String(),
			Memory: MemoryMetrics{
				Alloc:      mem.Alloc,
				TotalAlloc: mem.TotalAlloc,
				Sys:        mem.Sys,
				NumGC:      mem.NumGC,
			},
			Goroutines: runtime.NumGoroutine(),
		}

		response.WriteJSON(w, statusCode, &response.DataResponse[HealthData]{Status: status, Data: data})
	}
}
