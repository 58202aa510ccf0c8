package transit

import (
	"fmt"
	"time"

	"github.com/burakkagann/berlin-pulse/foundation/database"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// DepartureEvent is one scheduled or real-time departure observed at a tracked
// stop. Same append only semantics as VehiclePosition.
type DepartureEvent struct {
	Id            int64         `db:"id" json:"id"`
	Timestamp     time.Time     `db:"timestamp" json:"timestamp"`
	StopId        string        `db:"stop_id" json:"stop_id"`
	StopName      string        `db:"stop_name" json:"stop_name"`
	RouteId       *string       `db:"route_id" json:"route_id"`
	LineName      *string       `db:"line_name" json:"line_name"`
	TransportType TransportType `db:"transport_type" json:"transport_type"`
	Direction     *string       `db:"direction" json:"direction"`
	ScheduledTime time.Time     `db:"scheduled_time" json:"scheduled_time"`
	// ActualTime is the real-time departure when the feed provides one
	ActualTime   *time.Time     `db:"actual_time" json:"actual_time"`
	DelayMinutes int            `db:"delay_minutes" json:"delay_minutes"`
	Status       string         `db:"status" json:"status"`
	Platform     *string        `db:"platform" json:"platform"`
	TripId       *string        `db:"trip_id" json:"trip_id"`
	RawData      types.JSONText `db:"raw_data" json:"raw_data"`
}

// RecordDepartureEvent saves one DepartureEvent into database
func RecordDepartureEvent(event *DepartureEvent, db *sqlx.DB) error {
	statementString := "insert into departure_events " +
		"(timestamp, " +
		"stop_id, " +
		"stop_name, " +
		"route_id, " +
		"line_name, " +
		"transport_type, " +
		"direction, " +
		"scheduled_time, " +
		"actual_time, " +
		"delay_minutes, " +
		"status, " +
		"platform, " +
		"trip_id, " +
		"raw_data) " +
		"values " +
		"(:timestamp, " +
		":stop_id, " +
		":stop_name, " +
		":route_id, " +
		":line_name, " +
		":transport_type, " +
		":direction, " +
		":scheduled_time, " +
		":actual_time, " +
		":delay_minutes, " +
		":status, " +
		":platform, " +
		":trip_id, " +
		":raw_data)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, event)
	return err
}

// GetRecentDepartures returns departure events for stopId collected after since,
// ordered by scheduled time. stopId filters when non-empty.
func GetRecentDepartures(db *sqlx.DB,
	stopId string,
	since time.Time,
	limit int) ([]*DepartureEvent, error) {

	statementString := "select * from departure_events where timestamp >= :since "
	args := map[string]interface{}{
		"since": since,
		"limit": limit,
	}
	if stopId != "" {
		statementString += "and stop_id = :stop_id "
		args["stop_id"] = stopId
	}
	statementString += "order by scheduled_time limit :limit"

	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, args)

	defer func() {
		if rows != nil {
			_ = rows.Close()
		}
	}()

	if err != nil {
		return nil, fmt.Errorf("unable to retrieve departure_events rows, error: %w", err)
	}

	events := make([]*DepartureEvent, 0)
	for rows.Next() {
		event := DepartureEvent{}
		err = rows.StructScan(&event)
		events = append(events, &event)
	}
	return events, err
}

// DeleteDepartureEventsBefore removes events collected before cutoff.
// Returns the number of rows removed.
func DeleteDepartureEventsBefore(db *sqlx.DB, cutoff time.Time) (int64, error) {
	statementString := db.Rebind("delete from departure_events where timestamp < ?")
	result, err := db.Exec(statementString, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
