// Package transit provides CRUD functionality for collected Berlin transit records
package transit

// TransportType is the canonical classification of a line.
type TransportType string

const (
	Suburban TransportType = "suburban"
	Subway   TransportType = "subway"
	Tram     TransportType = "tram"
	Bus      TransportType = "bus"
	Ferry    TransportType = "ferry"
	Regional TransportType = "regional"
	Ring     TransportType = "ring"
)

// TransportTypes lists every valid TransportType
var TransportTypes = []TransportType{Suburban, Subway, Tram, Bus, Ferry, Regional, Ring}

// IsValidTransportType reports whether value is a member of the TransportType enum
func IsValidTransportType(value string) bool {
	for _, t := range TransportTypes {
		if string(t) == value {
			return true
		}
	}
	return false
}

// Collector status values recorded in collection_status
const (
	CollectorStatusRunning = "running"
	CollectorStatusIdle    = "idle"
	CollectorStatusWarning = "warning"
	CollectorStatusError   = "error"
)

// Vehicle position status values
const (
	VehicleStatusActive    = "active"
	VehicleStatusDelayed   = "delayed"
	VehicleStatusCancelled = "cancelled"
)

// Departure event status values
const (
	DepartureStatusOnTime    = "on_time"
	DepartureStatusDelayed   = "delayed"
	DepartureStatusCancelled = "cancelled"
)
