package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/radixpump/pumpengine/internal/hooks/limitbuy"
	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/pump"
	"github.com/radixpump/pumpengine/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes read-only pool and order book data over HTTP.
type WebServer struct {
	router   *mux.Router
	port     string
	engine   *pump.Pump
	limitBuy *limitbuy.Hook
}

// NewWebServer creates a new web server instance. limitBuy may be nil when
// the limit buy hook is not deployed.
func NewWebServer(port string, engine *pump.Pump, limitBuy *limitbuy.Hook) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		engine:   engine,
		limitBuy: limitBuy,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{asset}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{asset}/events", ws.handleGetPoolEvents).Methods("GET")
	api.HandleFunc("/orderbook/{asset}", ws.handleGetOrderBook).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"pool_count":       len(ws.engine.ListPools()),
			"base_currency":    ws.engine.BaseCurrency(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns snapshots of every pool
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.engine.ListPools()

	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a single pool snapshot
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset := vars["asset"]

	info, err := ws.engine.GetPoolInfo(asset)
	if err != nil {
		// Fall back to the last journaled snapshot for pools the running
		// engine does not hold.
		stored, storedErr := state.GetLatestPoolSnapshot(asset)
		if storedErr != nil {
			ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
			return
		}
		ws.writeJSONResponse(w, http.StatusOK, stored)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, info)
}

// handleGetPoolEvents returns the journaled events of a pool
func (ws *WebServer) handleGetPoolEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset := vars["asset"]

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			limit = parsedLimit
		}
	}

	events, err := state.GetEventsForAsset(asset, limit)
	if err != nil {
		webLogger.Error().Err(err).Str("asset", asset).Msg("Failed to get pool events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"asset":  asset,
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetOrderBook returns the resting limit buy orders of a coin
func (ws *WebServer) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	if ws.limitBuy == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Limit buy hook is not deployed")
		return
	}

	vars := mux.Vars(r)
	asset := vars["asset"]
	orders := ws.limitBuy.ActiveOrders(asset)

	response := map[string]interface{}{
		"asset":  asset,
		"orders": orders,
		"count":  len(orders),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
