package transit

import (
	"fmt"
	"time"

	"github.com/burakkagann/berlin-pulse/foundation/database"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// VehiclePosition is one vehicle location observation taken during a collection
// cycle. Rows are append only, a later cycle inserts new rows rather than
// updating earlier observations.
type VehiclePosition struct {
	Id int64 `db:"id" json:"id"`
	// Timestamp is the collection time of the cycle, shared by every vehicle
	// observed in the same cycle
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	// VehicleId is the trip id when the feed provides one, otherwise a
	// composite of line name, coordinates and collection epoch seconds.
	// Only unique within a single collection instant in the composite case.
	VehicleId     string        `db:"vehicle_id" json:"vehicle_id"`
	RouteId       *string       `db:"route_id" json:"route_id"`
	LineName      *string       `db:"line_name" json:"line_name"`
	TransportType TransportType `db:"transport_type" json:"transport_type"`
	Latitude      float64       `db:"latitude" json:"latitude"`
	Longitude     float64       `db:"longitude" json:"longitude"`
	Direction     *string       `db:"direction" json:"direction"`
	DelayMinutes  int           `db:"delay_minutes" json:"delay_minutes"`
	Status        string        `db:"status" json:"status"`
	// RawData holds the original radar item and the sector it was collected
	// from, preserved for audit and debugging
	RawData types.JSONText `db:"raw_data" json:"raw_data"`
}

// RecordVehiclePosition saves one VehiclePosition into database
func RecordVehiclePosition(position *VehiclePosition, db *sqlx.DB) error {
	statementString := "insert into vehicle_positions " +
		"(timestamp, " +
		"vehicle_id, " +
		"route_id, " +
		"line_name, " +
		"transport_type, " +
		"latitude, " +
		"longitude, " +
		"direction, " +
		"delay_minutes, " +
		"status, " +
		"raw_data) " +
		"values " +
		"(:timestamp, " +
		":vehicle_id, " +
		":route_id, " +
		":line_name, " +
		":transport_type, " +
		":latitude, " +
		":longitude, " +
		":direction, " +
		":delay_minutes, " +
		":status, " +
		":raw_data)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, position)
	return err
}

// GetRecentVehiclePositions returns positions collected after since, newest first.
// transportType filters when non-empty. limit caps the result set.
func GetRecentVehiclePositions(db *sqlx.DB,
	since time.Time,
	transportType string,
	limit int) ([]*VehiclePosition, error) {

	statementString := "select * from vehicle_positions where timestamp >= :since "
	args := map[string]interface{}{
		"since": since,
		"limit": limit,
	}
	if transportType != "" {
		statementString += "and transport_type = :transport_type "
		args["transport_type"] = transportType
	}
	statementString += "order by timestamp desc limit :limit"

	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, args)

	defer func() {
		if rows != nil {
			_ = rows.Close()
		}
	}()

	if err != nil {
		return nil, fmt.Errorf("unable to retrieve vehicle_positions rows, error: %w", err)
	}

	positions := make([]*VehiclePosition, 0)
	for rows.Next() {
		position := VehiclePosition{}
		err = rows.StructScan(&position)
		positions = append(positions, &position)
	}
	return positions, err
}

// DeleteVehiclePositionsBefore removes positions collected before cutoff,
// maintaining the rolling retention window. Returns the number of rows removed.
func DeleteVehiclePositionsBefore(db *sqlx.DB, cutoff time.Time) (int64, error) {
	statementString := db.Rebind("delete from vehicle_positions where timestamp < ?")
	result, err := db.Exec(statementString, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
