// Package pulseapi serves collected transit records and collection health
// over HTTP for the monitoring dashboard
package pulseapi

import (
	"context"
	"encoding/json"
	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	logger "log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// webHandlers holds what the query endpoints need to serve requests
type webHandlers struct {
	log        *logger.Logger
	db         *sqlx.DB
	staleAfter time.Duration
}

// writeJSON marshals payload and writes it with the given status code
func (h *webHandlers) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		h.log.Printf("error marshaling response: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err = w.Write(jsonData); err != nil {
		h.log.Printf("error writing json response: %v\n", err)
	}
}

// intQueryParam reads an integer query parameter, falling back to
// defaultValue when absent or unparseable
func intQueryParam(r *http.Request, name string, defaultValue int) int {
	value := r.FormValue(name)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// health reports overall service health: database reachability plus which
// collectors have gone stale
func (h *webHandlers) health(w http.ResponseWriter, _ *http.Request) {
	type healthResponse struct {
		Status          string   `json:"status"`
		Database        string   `json:"database"`
		StaleCollectors []string `json:"stale_collectors"`
	}

	response := healthResponse{
		Status:          "ok",
		Database:        "ok",
		StaleCollectors: []string{},
	}
	statusCode := http.StatusOK

	if err := h.db.Ping(); err != nil {
		h.log.Printf("health check database ping failed: %v\n", err)
		response.Status = "unhealthy"
		response.Database = "unreachable"
		h.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	statuses, err := transit.GetCollectionStatuses(h.db)
	if err != nil {
		h.log.Printf("health check status query failed: %v\n", err)
		response.Status = "unhealthy"
		h.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	now := time.Now().UTC()
	for _, status := range statuses {
		if status.LastSuccessAt == nil || now.Sub(*status.LastSuccessAt) > h.staleAfter {
			response.StaleCollectors = append(response.StaleCollectors, status.CollectorName)
		}
	}
	if len(response.StaleCollectors) > 0 {
		response.Status = "degraded"
	}

	h.writeJSON(w, statusCode, response)
}

// collectionStatus lists the status row of every collector
func (h *webHandlers) collectionStatus(w http.ResponseWriter, _ *http.Request) {
	statuses, err := transit.GetCollectionStatuses(h.db)
	if err != nil {
		h.log.Printf("error retrieving collection statuses: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, statuses)
}

// recentVehicles serves vehicle positions from the last N minutes, optionally
// filtered by transport type
func (h *webHandlers) recentVehicles(w http.ResponseWriter, r *http.Request) {
	minutes := intQueryParam(r, "minutes", 5)
	limit := intQueryParam(r, "limit", 500)
	transportType := strings.ToLower(r.FormValue("transport_type"))
	if transportType != "" && !transit.IsValidTransportType(transportType) {
		http.Error(w, "unknown transport_type", http.StatusBadRequest)
		return
	}

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	positions, err := transit.GetRecentVehiclePositions(h.db, since, transportType, limit)
	if err != nil {
		h.log.Printf("error retrieving vehicle positions: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, positions)
}

// trackedStops lists the stops currently tracked for departures
func (h *webHandlers) trackedStops(w http.ResponseWriter, _ *http.Request) {
	stops, err := transit.GetTrackedStops(h.db)
	if err != nil {
		h.log.Printf("error retrieving tracked stops: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, stops)
}

// stopDepartures serves departure events collected for one stop in the last N
// minutes
func (h *webHandlers) stopDepartures(w http.ResponseWriter, r *http.Request) {
	stopId := mux.Vars(r)["stopID"]
	minutes := intQueryParam(r, "minutes", 60)
	limit := intQueryParam(r, "limit", 500)

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	events, err := transit.GetRecentDepartures(h.db, stopId, since, limit)
	if err != nil {
		h.log.Printf("error retrieving departures for stop %s: %v\n", stopId, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// routeGeometries serves the discovered route geometries, optionally filtered
// by transport type
func (h *webHandlers) routeGeometries(w http.ResponseWriter, r *http.Request) {
	transportType := strings.ToLower(r.FormValue("transport_type"))
	if transportType != "" && !transit.IsValidTransportType(transportType) {
		http.Error(w, "unknown transport_type", http.StatusBadRequest)
		return
	}
	geometries, err := transit.GetRouteGeometries(h.db, transportType)
	if err != nil {
		h.log.Printf("error retrieving route geometries: %v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, geometries)
}

//createServer creates configured http.Server for the query endpoints
func createServer(log *logger.Logger,
	db *sqlx.DB,
	httpPort int,
	staleAfter time.Duration) *http.Server {

	handlers := &webHandlers{
		log:        log,
		db:         db,
		staleAfter: staleAfter,
	}

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.HandleFunc("/api/v1/health", handlers.health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", handlers.collectionStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/vehicles/recent", handlers.recentVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stops", handlers.trackedStops).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stops/{stopID}/departures", handlers.stopDepartures).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/routes", handlers.routeGeometries).Methods(http.MethodGet)

	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

//RunWebService starts up the query web service, and terminates on shutdown
//signal
func RunWebService(log *logger.Logger,
	db *sqlx.DB,
	httpPort int,
	staleAfter time.Duration,
	shutdownSignal chan os.Signal) {

	srv := createServer(log, db, httpPort, staleAfter)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
