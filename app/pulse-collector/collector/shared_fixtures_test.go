package collector

import (
	"io"
	"log"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type statusUpdate struct {
	collectorName string
	status        string
	recordsDelta  int
	errorMessage  *string
}

// testRecorder implements recorder in memory for tracker tests
type testRecorder struct {
	positions     []*transit.VehiclePosition
	events        []*transit.DepartureEvent
	geometries    []*transit.RouteGeometry
	statusUpdates []statusUpdate

	stops    []transit.TrackedStop
	stopsErr error

	failInserts bool
}

func (r *testRecorder) recordVehiclePosition(position *transit.VehiclePosition) bool {
	if r.failInserts {
		return false
	}
	r.positions = append(r.positions, position)
	return true
}

func (r *testRecorder) recordDepartureEvent(event *transit.DepartureEvent) bool {
	if r.failInserts {
		return false
	}
	r.events = append(r.events, event)
	return true
}

func (r *testRecorder) recordRouteGeometry(geometry *transit.RouteGeometry) bool {
	if r.failInserts {
		return false
	}
	r.geometries = append(r.geometries, geometry)
	return true
}

func (r *testRecorder) upsertCollectionStatus(collectorName string,
	status string,
	recordsDelta int,
	errorMessage *string) {
	r.statusUpdates = append(r.statusUpdates, statusUpdate{
		collectorName: collectorName,
		status:        status,
		recordsDelta:  recordsDelta,
		errorMessage:  errorMessage,
	})
}

func (r *testRecorder) trackedStops() ([]transit.TrackedStop, error) {
	return r.stops, r.stopsErr
}

// noSleep replaces the api client sleep so retry tests run instantly
func noSleep(time.Duration) {}
