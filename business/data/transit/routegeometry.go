package transit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// RouteGeometry is the discovered shape of one route in one direction, stored
// as GeoJSON along with the ordered stop list of a representative trip.
// Keyed by route id, transport type and direction.
type RouteGeometry struct {
	Id              int64          `db:"id" json:"id"`
	RouteId         string         `db:"route_id" json:"route_id"`
	LineName        string         `db:"line_name" json:"line_name"`
	TransportType   TransportType  `db:"transport_type" json:"transport_type"`
	Direction       *string        `db:"direction" json:"direction"`
	TripId          *string        `db:"trip_id" json:"trip_id"`
	GeometryGeoJSON types.JSONText `db:"geometry_geojson" json:"geometry_geojson"`
	StopsData       types.JSONText `db:"stops_data" json:"stops_data"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at"`
}

// UpsertRouteGeometry inserts geometry or refreshes the existing row for the
// same route id, transport type and direction
func UpsertRouteGeometry(geometry *RouteGeometry, db *sqlx.DB) error {
	selectString := db.Rebind("select id from route_geometry " +
		"where route_id = ? and transport_type = ? and direction is not distinct from ?")
	var existingId int64
	err := db.Get(&existingId, selectString, geometry.RouteId, geometry.TransportType, geometry.Direction)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unable to check for existing route_geometry row, error: %w", err)
	}

	if existingId != 0 {
		statementString := db.Rebind("update route_geometry set " +
			"geometry_geojson = ?, " +
			"stops_data = ?, " +
			"trip_id = ?, " +
			"updated_at = now() " +
			"where id = ?")
		_, err = db.Exec(statementString,
			geometry.GeometryGeoJSON, geometry.StopsData, geometry.TripId, existingId)
		return err
	}

	statementString := "insert into route_geometry " +
		"(route_id, " +
		"line_name, " +
		"transport_type, " +
		"direction, " +
		"trip_id, " +
		"geometry_geojson, " +
		"stops_data) " +
		"values " +
		"(:route_id, " +
		":line_name, " +
		":transport_type, " +
		":direction, " +
		":trip_id, " +
		":geometry_geojson, " +
		":stops_data)"
	statementString = db.Rebind(statementString)
	_, err = db.NamedExec(statementString, geometry)
	return err
}

// GetRouteGeometries retrieves stored geometries, filtered by transport type
// when transportType is non-empty
func GetRouteGeometries(db *sqlx.DB, transportType string) ([]*RouteGeometry, error) {
	query := "select * from route_geometry"
	var args []interface{}
	if transportType != "" {
		query += " where transport_type = ?"
		args = append(args, transportType)
	}
	query += " order by route_id"
	geometries := make([]*RouteGeometry, 0)
	err := db.Select(&geometries, db.Rebind(query), args...)
	return geometries, err
}
