// Package collector polls the Berlin transit real-time API on fixed intervals
// and persists normalized vehicle and departure records for later replay
package collector

import (
	"fmt"
	"log"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// Config holds the tunables shared by the collection loops
type Config struct {
	APIBaseURL               string
	RequestTimeoutSeconds    int
	RetryAttempts            int
	RetryDelaySeconds        int
	VehicleIntervalSeconds   int
	DepartureIntervalSeconds int
	MaxResultsPerSector      int
	DepartureDurationMinutes int
	MaxDeparturesPerStop     int
}

// newAPIClient builds the retrying api client from the config
func (cfg Config) newAPIClient(log *log.Logger) *apiClient {
	return makeAPIClient(log,
		cfg.APIBaseURL,
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second,
		cfg.RetryAttempts,
		time.Duration(cfg.RetryDelaySeconds)*time.Second)
}

// RunVehicleCollectionLoop collects vehicle positions until shutdown is
// closed. natsConn may be nil to disable the live feed.
func RunVehicleCollectionLoop(log *log.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	cfg Config,
	shutdown chan struct{}) {

	rec := makeDBRecorder(log, db, natsConn)
	tracker := makeVehicleTracker(log, cfg.newAPIClient(log), rec, cfg.MaxResultsPerSector)
	runCollectionLoop(log, vehicleCollectorName, cfg.VehicleIntervalSeconds,
		tracker.collectAllVehicles, rec, shutdown)
}

// RunDepartureCollectionLoop collects departure events until shutdown is
// closed
func RunDepartureCollectionLoop(log *log.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	cfg Config,
	shutdown chan struct{}) {

	rec := makeDBRecorder(log, db, natsConn)
	tracker := makeDepartureTracker(log, cfg.newAPIClient(log), rec,
		cfg.DepartureDurationMinutes, cfg.MaxDeparturesPerStop)
	runCollectionLoop(log, departureCollectorName, cfg.DepartureIntervalSeconds,
		tracker.collectAllDepartures, rec, shutdown)
}

// runCollectionLoop runs collect on a stable period, subtracting the time a
// cycle took from the sleep before the next one. collect handles its own
// failures, a panic escaping it is recovered here and the loop waits out the
// full interval before trying again.
func runCollectionLoop(log *log.Logger,
	name string,
	loopEverySeconds int,
	collect func() int,
	rec recorder,
	shutdown chan struct{}) {

	loopDuration := time.Duration(loopEverySeconds) * time.Second
	log.Printf("%s: starting collection loop with %ds interval\n", name, loopEverySeconds)

	sleepChan := make(chan bool)
	sleep := time.Duration(0) //sleep for zero seconds the first time
	for {

		go func(d time.Duration) {
			time.Sleep(d)
			sleepChan <- true
		}(sleep)

		select {
		case <-shutdown:
			log.Printf("%s: exiting on shutdown signal\n", name)
			return
		case <-sleepChan:
		}

		start := time.Now()

		count, completed := runCollectionCycle(log, name, collect, rec)

		workTook := time.Since(start)

		if !completed {
			sleep = loopDuration
			continue
		}

		log.Printf("%s: collection cycle completed: %d records in %s\n", name, count, fmtDuration(workTook))

		sleep = nextSleep(loopDuration, workTook)
	}
}

// runCollectionCycle invokes collect, recovering a panic so one bad cycle
// cannot kill the loop. A recovered panic marks the collector's status row
// error, otherwise the row stays at whatever the aborted cycle last reported
// and the collector would look healthy. completed is false when the cycle
// panicked.
func runCollectionCycle(log *log.Logger, name string, collect func() int, rec recorder) (count int, completed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: collection cycle failed: %v\n", name, r)
			message := fmt.Sprintf("collection cycle failed: %v", r)
			rec.upsertCollectionStatus(name, transit.CollectorStatusError, 0, &message)
		}
	}()
	count = collect()
	completed = true
	return count, completed
}

// nextSleep returns how long the loop should sleep so the effective period
// stays stable, never negative
func nextSleep(loopDuration time.Duration, workTook time.Duration) time.Duration {
	if workTook >= loopDuration {
		return time.Duration(0)
	}
	return loopDuration - workTook
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%d", h, m, mill)
}
