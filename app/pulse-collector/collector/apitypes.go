package collector

import (
	"time"
)

// Raw shapes of the transport.rest API responses. Optional fields are
// pointers and will be nil when absent from the feed.

// apiLine is the line object embedded in radar movements and departures
type apiLine struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Mode    string `json:"mode"`
	Product string `json:"product"`
}

// apiLocation is a coordinate pair
type apiLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// apiTrip is the trip object embedded in radar movements
type apiTrip struct {
	Id        string  `json:"id"`
	Direction *string `json:"direction"`
}

// radarMovement is one vehicle item from the /radar endpoint
type radarMovement struct {
	TripId    string       `json:"tripId"`
	Direction *string      `json:"direction"`
	Line      *apiLine     `json:"line"`
	Location  *apiLocation `json:"location"`
	Trip      *apiTrip     `json:"trip"`
	Delay     *float64     `json:"delay"`
	Cancelled bool         `json:"cancelled"`
}

// stopDeparture is one item from the /stops/{id}/departures endpoint
type stopDeparture struct {
	TripId                string   `json:"tripId"`
	Direction             *string  `json:"direction"`
	Line                  *apiLine `json:"line"`
	When                  *string  `json:"when"`
	PlannedWhen           *string  `json:"plannedWhen"`
	Delay                 *float64 `json:"delay"`
	Platform              *string  `json:"platform"`
	PlannedPlatform       *string  `json:"plannedPlatform"`
	Cancelled             bool     `json:"cancelled"`
	RealtimeDataUpdatedAt *int64   `json:"realtimeDataUpdatedAt"`
}

// apiTimeLayouts are tried in order when parsing feed timestamps. Layouts
// without a zone parse as UTC.
var apiTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseAPITime parses an ISO-8601-like timestamp from the feed. Returns nil
// when the value is empty or unparseable, callers treat that as an absent
// field.
func parseAPITime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}

// delayToMinutes converts a delay reported in seconds to whole minutes,
// clamped at zero. A nil delay is no delay.
func delayToMinutes(delaySeconds *float64) int {
	if delaySeconds == nil || *delaySeconds <= 0 {
		return 0
	}
	return int(*delaySeconds / 60)
}

// emptyToNil maps an empty string to a nil pointer for optional columns
func emptyToNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
