package collector

import (
	"encoding/json"
	"log"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// NATS subjects for the live feed of persisted records
const (
	vehiclePositionSubject = "pulse.vehicle-positions"
	departureEventSubject  = "pulse.departure-events"
)

// recorder takes normalized records produced by the trackers and sends them to
// their destinations (such as database and/or nats), and maintains the
// collection status rows the health checks read
type recorder interface {
	// recordVehiclePosition persists one position, reporting whether the write
	// counted toward the cycle total
	recordVehiclePosition(position *transit.VehiclePosition) bool

	// recordDepartureEvent persists one departure event
	recordDepartureEvent(event *transit.DepartureEvent) bool

	// recordRouteGeometry persists one discovered route geometry
	recordRouteGeometry(geometry *transit.RouteGeometry) bool

	// upsertCollectionStatus reports a cycle boundary for collectorName. Write
	// failures are logged and swallowed, a status update must never abort the
	// cycle that triggered it.
	upsertCollectionStatus(collectorName string, status string, recordsDelta int, errorMessage *string)

	// trackedStops lists the stops the departure collector partitions over
	trackedStops() ([]transit.TrackedStop, error)
}

// dbRecorder implements recorder against the database, optionally mirroring
// persisted records onto NATS for live consumers
type dbRecorder struct {
	log      *log.Logger
	db       *sqlx.DB
	natsConn *nats.Conn
}

// makeDBRecorder creates dbRecorder. natsConn may be nil to disable the live
// feed.
func makeDBRecorder(log *log.Logger, db *sqlx.DB, natsConn *nats.Conn) *dbRecorder {
	return &dbRecorder{
		log:      log,
		db:       db,
		natsConn: natsConn,
	}
}

func (d *dbRecorder) recordVehiclePosition(position *transit.VehiclePosition) bool {
	err := transit.RecordVehiclePosition(position, d.db)
	if err != nil {
		d.log.Printf("error saving vehicle position for vehicle %s. error: %v", position.VehicleId, err)
		return false
	}
	d.publish(vehiclePositionSubject, position)
	return true
}

func (d *dbRecorder) recordDepartureEvent(event *transit.DepartureEvent) bool {
	err := transit.RecordDepartureEvent(event, d.db)
	if err != nil {
		d.log.Printf("error saving departure event for stop %s. error: %v", event.StopId, err)
		return false
	}
	d.publish(departureEventSubject, event)
	return true
}

func (d *dbRecorder) recordRouteGeometry(geometry *transit.RouteGeometry) bool {
	err := transit.UpsertRouteGeometry(geometry, d.db)
	if err != nil {
		d.log.Printf("error saving route geometry for route %s. error: %v", geometry.RouteId, err)
		return false
	}
	return true
}

func (d *dbRecorder) upsertCollectionStatus(collectorName string,
	status string,
	recordsDelta int,
	errorMessage *string) {
	err := transit.UpsertCollectionStatus(d.db, collectorName, status, recordsDelta, errorMessage)
	if err != nil {
		d.log.Printf("error updating collection status for %s. error: %v", collectorName, err)
	}
}

func (d *dbRecorder) trackedStops() ([]transit.TrackedStop, error) {
	return transit.GetTrackedStops(d.db)
}

// publish mirrors a persisted record onto the live feed, best effort
func (d *dbRecorder) publish(subject string, record interface{}) {
	if d.natsConn == nil {
		return
	}
	jsonData, err := json.Marshal(record)
	if err != nil {
		d.log.Printf("error marshaling record for subject %s. error: %v", subject, err)
		return
	}
	err = d.natsConn.Publish(subject, jsonData)
	if err != nil {
		d.log.Printf("error publishing record to %s. error: %v", subject, err)
	}
}
