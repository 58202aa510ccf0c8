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

const departureCollectorName = "departure_tracker"

// departureTracker monitors real-time departure information, including delays
// and cancellations, at the tracked Berlin stops
type departureTracker struct {
	log             *log.Logger
	api             *apiClient
	rec             recorder
	durationMinutes int
	maxDepartures   int
}

// makeDepartureTracker creates a departureTracker. durationMinutes is the
// look-ahead window requested per stop, maxDepartures caps results per stop.
func makeDepartureTracker(log *log.Logger, api *apiClient, rec recorder,
	durationMinutes int, maxDepartures int) *departureTracker {
	return &departureTracker{
		log:             log,
		api:             api,
		rec:             rec,
		durationMinutes: durationMinutes,
		maxDepartures:   maxDepartures,
	}
}

// stopResult is the outcome of one stop's fetch and normalize pipeline
type stopResult struct {
	stopName string
	events   []*transit.DepartureEvent
	err      error
}

// collectAllDepartures runs one collection cycle over every tracked stop
// concurrently. A failing stop is logged and contributes nothing. Returns the
// number of departure events persisted.
func (t *departureTracker) collectAllDepartures() int {
	t.rec.upsertCollectionStatus(departureCollectorName, transit.CollectorStatusRunning, 0, nil)

	stops, err := t.rec.trackedStops()
	if err != nil {
		t.log.Printf("error loading tracked stops. error: %v\n", err)
		message := fmt.Sprintf("unable to load tracked stops: %v", err)
		t.rec.upsertCollectionStatus(departureCollectorName, transit.CollectorStatusError, 0, &message)
		return 0
	}
	if len(stops) == 0 {
		t.log.Printf("no tracked stops configured, nothing to collect\n")
		message := "no tracked stops configured"
		t.rec.upsertCollectionStatus(departureCollectorName, transit.CollectorStatusWarning, 0, &message)
		return 0
	}

	collectedAt := time.Now().UTC()

	resultChan := make(chan stopResult, len(stops))
	for _, stop := range stops {
		go func(stop transit.TrackedStop) {
			events, err := t.collectDeparturesForStop(stop, collectedAt)
			resultChan <- stopResult{stopName: stop.StopName, events: events, err: err}
		}(stop)
	}

	totalDepartures := 0
	for range stops {
		result := <-resultChan
		if result.err != nil {
			t.log.Printf("error collecting departures from %s. error: %v\n", result.stopName, result.err)
			continue
		}
		for _, event := range result.events {
			if t.rec.recordDepartureEvent(event) {
				totalDepartures++
			}
		}
	}

	t.rec.upsertCollectionStatus(departureCollectorName, transit.CollectorStatusIdle, totalDepartures, nil)
	t.log.Printf("collected %d departure events\n", totalDepartures)
	return totalDepartures
}

// collectDeparturesForStop fetches upcoming departures for one stop and
// normalizes the items that pass validation. An unknown stop id (404) yields
// an empty result.
func (t *departureTracker) collectDeparturesForStop(stop transit.TrackedStop,
	collectedAt time.Time) ([]*transit.DepartureEvent, error) {

	params := url.Values{}
	params.Set("duration", strconv.Itoa(t.durationMinutes))
	params.Set("results", strconv.Itoa(t.maxDepartures))

	body, err := t.api.getJSON("/stops/"+url.PathEscape(stop.StopId)+"/departures", params)
	if err != nil {
		return nil, err
	}
	if body == nil {
		t.log.Printf("stop %s (%s) not found\n", stop.StopId, stop.StopName)
		return nil, nil
	}

	rawItems, err := decodeDepartureItems(body)
	if err != nil {
		return nil, fmt.Errorf("unable to decode departures response for %s: %w", stop.StopName, err)
	}

	events := make([]*transit.DepartureEvent, 0, len(rawItems))
	for _, rawItem := range rawItems {
		event := extractDepartureEvent(t.log, rawItem, stop, collectedAt)
		if event != nil {
			events = append(events, event)
		}
	}
	return events, nil
}

// decodeDepartureItems accepts both response shapes the API has used: an
// object wrapping a departures list, and a bare list
func decodeDepartureItems(body []byte) ([]json.RawMessage, error) {
	var wrapped struct {
		Departures []json.RawMessage `json:"departures"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Departures != nil {
		return wrapped.Departures, nil
	}
	var bare []json.RawMessage
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

// extractDepartureEvent normalizes one departure item. Returns nil when the
// item fails required-field validation, a departure without a resolvable
// scheduled time is dropped entirely.
func extractDepartureEvent(log *log.Logger,
	rawItem json.RawMessage,
	stop transit.TrackedStop,
	collectedAt time.Time) *transit.DepartureEvent {

	var item stopDeparture
	if err := json.Unmarshal(rawItem, &item); err != nil {
		log.Printf("dropping undecodable departure item at %s. error: %v\n", stop.StopName, err)
		return nil
	}

	if item.Line == nil {
		return nil
	}

	var scheduledTime *time.Time
	if item.PlannedWhen != nil {
		scheduledTime = parseAPITime(*item.PlannedWhen)
	}
	if scheduledTime == nil {
		return nil
	}
	var actualTime *time.Time
	if item.When != nil {
		actualTime = parseAPITime(*item.When)
	}

	delayMinutes := delayToMinutes(item.Delay)
	if delayMinutes == 0 && actualTime != nil {
		// no explicit delay from the feed, derive one from the times
		diffMinutes := int(actualTime.Sub(*scheduledTime).Seconds() / 60)
		if diffMinutes > 0 {
			delayMinutes = diffMinutes
		}
	}

	platform := item.Platform
	if platform == nil {
		platform = item.PlannedPlatform
	}

	rawData, err := json.Marshal(struct {
		OriginalItem json.RawMessage `json:"original_item"`
	}{OriginalItem: rawItem})
	if err != nil {
		log.Printf("dropping departure item at %s, unable to preserve raw payload. error: %v\n",
			stop.StopName, err)
		return nil
	}

	return &transit.DepartureEvent{
		Timestamp:     collectedAt,
		StopId:        stop.StopId,
		StopName:      stop.StopName,
		RouteId:       emptyToNil(strings.ToLower(item.Line.Id)),
		LineName:      emptyToNil(item.Line.Name),
		TransportType: classifyTransportType(item.Line.Name, item.Line.Mode, item.Line.Product),
		Direction:     item.Direction,
		ScheduledTime: *scheduledTime,
		ActualTime:    actualTime,
		DelayMinutes:  delayMinutes,
		Status:        departureStatus(&item, delayMinutes),
		Platform:      platform,
		TripId:        emptyToNil(item.TripId),
		RawData:       rawData,
	}
}

// departureStatus derives the departure status. Without any realtime signal
// the departure is assumed on time regardless of the derived delay.
func departureStatus(item *stopDeparture, delayMinutes int) string {
	if item.Cancelled {
		return transit.DepartureStatusCancelled
	}
	if item.RealtimeDataUpdatedAt != nil || item.When != nil {
		if delayMinutes > 5 {
			return transit.DepartureStatusDelayed
		}
		return transit.DepartureStatusOnTime
	}
	return transit.DepartureStatusOnTime
}
