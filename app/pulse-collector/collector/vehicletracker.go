package collector

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
)

const vehicleCollectorName = "vehicle_tracker"

// vehicleTracker collects real-time vehicle positions across Berlin by
// querying the radar endpoint once per geographic sector
type vehicleTracker struct {
	log                 *log.Logger
	api                 *apiClient
	rec                 recorder
	sectors             []sector
	maxResultsPerSector int
}

// makeVehicleTracker creates a vehicleTracker over the fixed Berlin sectors
func makeVehicleTracker(log *log.Logger, api *apiClient, rec recorder, maxResultsPerSector int) *vehicleTracker {
	return &vehicleTracker{
		log:                 log,
		api:                 api,
		rec:                 rec,
		sectors:             berlinSectors,
		maxResultsPerSector: maxResultsPerSector,
	}
}

// sectorResult is the outcome of one sector's fetch and normalize pipeline,
// gathered at the fan-in point
type sectorResult struct {
	sectorName string
	positions  []*transit.VehiclePosition
	err        error
}

// collectAllVehicles runs one collection cycle: all sectors fetched
// concurrently, results gathered, each normalized position written once. A
// failing sector is logged and contributes nothing, its siblings are
// unaffected. Returns the number of positions persisted.
func (t *vehicleTracker) collectAllVehicles() int {
	t.rec.upsertCollectionStatus(vehicleCollectorName, transit.CollectorStatusRunning, 0, nil)

	// one timestamp per cycle, shared by every vehicle in the batch
	collectedAt := time.Now().UTC()

	resultChan := make(chan sectorResult, len(t.sectors))
	for _, s := range t.sectors {
		go func(s sector) {
			positions, err := t.collectVehiclesInSector(s, collectedAt)
			resultChan <- sectorResult{sectorName: s.name, positions: positions, err: err}
		}(s)
	}

	totalVehicles := 0
	for range t.sectors {
		result := <-resultChan
		if result.err != nil {
			t.log.Printf("error collecting vehicles from %s sector. error: %v\n", result.sectorName, result.err)
			continue
		}
		for _, position := range result.positions {
			if t.rec.recordVehiclePosition(position) {
				totalVehicles++
			}
		}
	}

	t.rec.upsertCollectionStatus(vehicleCollectorName, transit.CollectorStatusIdle, totalVehicles, nil)
	t.log.Printf("collected %d vehicle positions\n", totalVehicles)
	return totalVehicles
}

// collectVehiclesInSector fetches every vehicle currently moving inside the
// sector's bounding box and normalizes the movements that pass validation
func (t *vehicleTracker) collectVehiclesInSector(s sector, collectedAt time.Time) ([]*transit.VehiclePosition, error) {
	params := url.Values{}
	params.Set("north", strconv.FormatFloat(s.north, 'f', -1, 64))
	params.Set("south", strconv.FormatFloat(s.south, 'f', -1, 64))
	params.Set("west", strconv.FormatFloat(s.west, 'f', -1, 64))
	params.Set("east", strconv.FormatFloat(s.east, 'f', -1, 64))
	params.Set("results", strconv.Itoa(t.maxResultsPerSector))

	body, err := t.api.getJSON("/radar", params)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var response struct {
		Movements []json.RawMessage `json:"movements"`
	}
	if err = json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unable to decode radar response for %s sector: %w", s.name, err)
	}

	positions := make([]*transit.VehiclePosition, 0, len(response.Movements))
	for _, rawItem := range response.Movements {
		position := extractVehiclePosition(t.log, rawItem, collectedAt, s.name)
		if position != nil {
			positions = append(positions, position)
		}
	}
	t.log.Printf("processed %d of %d movements from %s sector\n",
		len(positions), len(response.Movements), s.name)
	return positions, nil
}

// extractVehiclePosition normalizes one radar movement. Returns nil when the
// item fails required-field validation, dropping it without affecting
// siblings in the same response.
func extractVehiclePosition(log *log.Logger,
	rawItem json.RawMessage,
	collectedAt time.Time,
	sectorName string) *transit.VehiclePosition {

	var item radarMovement
	if err := json.Unmarshal(rawItem, &item); err != nil {
		log.Printf("dropping undecodable radar movement in %s sector. error: %v\n", sectorName, err)
		return nil
	}

	if item.Location == nil || item.Location.Latitude == nil || item.Location.Longitude == nil {
		return nil
	}
	if item.Line == nil {
		return nil
	}
	latitude := *item.Location.Latitude
	longitude := *item.Location.Longitude

	transportType := classifyTransportType(item.Line.Name, item.Line.Mode, item.Line.Product)
	delayMinutes := delayToMinutes(item.Delay)

	direction := item.Direction
	if item.Trip != nil && item.Trip.Direction != nil {
		direction = item.Trip.Direction
	}

	rawData, err := json.Marshal(struct {
		Sector       string          `json:"sector"`
		OriginalItem json.RawMessage `json:"original_item"`
	}{Sector: sectorName, OriginalItem: rawItem})
	if err != nil {
		log.Printf("dropping radar movement in %s sector, unable to preserve raw payload. error: %v\n",
			sectorName, err)
		return nil
	}

	return &transit.VehiclePosition{
		Timestamp:     collectedAt,
		VehicleId:     resolveVehicleId(&item, latitude, longitude, collectedAt),
		RouteId:       emptyToNil(strings.ToLower(item.Line.Id)),
		LineName:      emptyToNil(item.Line.Name),
		TransportType: transportType,
		Latitude:      latitude,
		Longitude:     longitude,
		Direction:     direction,
		DelayMinutes:  delayMinutes,
		Status:        vehicleStatus(item.Cancelled, delayMinutes),
		RawData:       rawData,
	}
}

// resolveVehicleId prefers the trip id as the vehicle identifier. When the
// feed exposes none, a composite of line name, coordinates and collection
// epoch seconds is synthesized, unique only within a single collection
// instant.
func resolveVehicleId(item *radarMovement, latitude float64, longitude float64, collectedAt time.Time) string {
	if item.Trip != nil && item.Trip.Id != "" {
		return item.Trip.Id
	}
	if item.TripId != "" {
		return item.TripId
	}
	lineName := "unknown"
	if item.Line != nil && item.Line.Name != "" {
		lineName = item.Line.Name
	}
	return fmt.Sprintf("%s_%s_%s_%d", lineName,
		strconv.FormatFloat(latitude, 'f', -1, 64),
		strconv.FormatFloat(longitude, 'f', -1, 64),
		collectedAt.Unix())
}

// vehicleStatus derives the vehicle status. Vehicles only count as delayed
// past ten minutes, departures use the lower five minute threshold.
func vehicleStatus(cancelled bool, delayMinutes int) string {
	if cancelled {
		return transit.VehicleStatusCancelled
	}
	if delayMinutes > 10 {
		return transit.VehicleStatusDelayed
	}
	return transit.VehicleStatusActive
}
