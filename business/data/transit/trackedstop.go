package transit

import (
	"github.com/jmoiron/sqlx"
)

// TrackedStop is a stop the departure collector polls. Which stops are tracked
// is maintained in the stops_reference table outside this process.
type TrackedStop struct {
	StopId    string  `db:"stop_id" json:"stop_id"`
	StopName  string  `db:"stop_name" json:"stop_name"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// GetTrackedStops retrieves the stops currently flagged for departure tracking
func GetTrackedStops(db *sqlx.DB) ([]TrackedStop, error) {
	query := "select stop_id, stop_name, latitude, longitude " +
		"from stops_reference where is_tracked = true"
	stops := make([]TrackedStop, 0)
	err := db.Select(&stops, query)
	return stops, err
}
