package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/matryer/is"
)

func TestExtractVehiclePosition(t *testing.T) {
	collectedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("complete movement", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "1|12345|0|86|14032026",
			"direction": "S Spandau",
			"line": {"id": "s7", "name": "S7", "mode": "train", "product": "suburban"},
			"location": {"latitude": 52.521, "longitude": 13.411},
			"delay": 650
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "central")
		if position == nil {
			t.Fatal("expected a position from a complete movement")
		}
		is.Equal(position.VehicleId, "1|12345|0|86|14032026")
		is.Equal(*position.RouteId, "s7")
		is.Equal(*position.LineName, "S7")
		is.Equal(position.TransportType, transit.Suburban)
		is.Equal(position.Latitude, 52.521)
		is.Equal(position.Longitude, 13.411)
		is.Equal(*position.Direction, "S Spandau")
		is.Equal(position.DelayMinutes, 10)
		is.Equal(position.Status, transit.VehicleStatusActive)
		is.Equal(position.Timestamp, collectedAt)
	})

	t.Run("negative delay clamps to zero", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-1",
			"line": {"name": "U6"},
			"location": {"latitude": 52.5, "longitude": 13.4},
			"delay": -300
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "central")
		if position == nil {
			t.Fatal("expected a position")
		}
		is.Equal(position.DelayMinutes, 0)
		is.Equal(position.Status, transit.VehicleStatusActive)
	})

	t.Run("seven minute delay is still active", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-2",
			"line": {"name": "M10"},
			"location": {"latitude": 52.5, "longitude": 13.4},
			"delay": 420
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "east")
		if position == nil {
			t.Fatal("expected a position")
		}
		is.Equal(position.DelayMinutes, 7)
		is.Equal(position.Status, transit.VehicleStatusActive)
	})

	t.Run("eleven minute delay marks delayed", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-3",
			"line": {"name": "RE1"},
			"location": {"latitude": 52.5, "longitude": 13.4},
			"delay": 660
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "east")
		if position == nil {
			t.Fatal("expected a position")
		}
		is.Equal(position.DelayMinutes, 11)
		is.Equal(position.Status, transit.VehicleStatusDelayed)
	})

	t.Run("cancelled beats delay", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-4",
			"line": {"name": "S41"},
			"location": {"latitude": 52.5, "longitude": 13.4},
			"delay": 900,
			"cancelled": true
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "south")
		if position == nil {
			t.Fatal("expected a position")
		}
		is.Equal(position.Status, transit.VehicleStatusCancelled)
		is.Equal(position.TransportType, transit.Ring)
	})

	t.Run("trip direction preferred over movement direction", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-5",
			"direction": "stale direction",
			"trip": {"id": "trip-5", "direction": "U Alt-Mariendorf"},
			"line": {"name": "U6"},
			"location": {"latitude": 52.5, "longitude": 13.4}
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "central")
		if position == nil {
			t.Fatal("expected a position")
		}
		is.Equal(*position.Direction, "U Alt-Mariendorf")
	})

	t.Run("missing location drops the movement", func(t *testing.T) {
		rawItem := json.RawMessage(`{"tripId": "trip-6", "line": {"name": "U6"}}`)
		if extractVehiclePosition(testLogger(), rawItem, collectedAt, "central") != nil {
			t.Fatal("expected movement without location to be dropped")
		}
	})

	t.Run("missing coordinates drop the movement", func(t *testing.T) {
		rawItem := json.RawMessage(`{
			"tripId": "trip-7",
			"line": {"name": "U6"},
			"location": {"latitude": 52.5}
		}`)
		if extractVehiclePosition(testLogger(), rawItem, collectedAt, "central") != nil {
			t.Fatal("expected movement without longitude to be dropped")
		}
	})

	t.Run("missing line drops the movement", func(t *testing.T) {
		rawItem := json.RawMessage(`{
			"tripId": "trip-8",
			"location": {"latitude": 52.5, "longitude": 13.4}
		}`)
		if extractVehiclePosition(testLogger(), rawItem, collectedAt, "central") != nil {
			t.Fatal("expected movement without line to be dropped")
		}
	})

	t.Run("undecodable movement drops without panic", func(t *testing.T) {
		rawItem := json.RawMessage(`{"location": "not an object"}`)
		if extractVehiclePosition(testLogger(), rawItem, collectedAt, "central") != nil {
			t.Fatal("expected undecodable movement to be dropped")
		}
	})

	t.Run("raw payload preserves the sector and original item", func(t *testing.T) {
		is := is.New(t)
		rawItem := json.RawMessage(`{
			"tripId": "trip-9",
			"line": {"name": "100"},
			"location": {"latitude": 52.5, "longitude": 13.4}
		}`)

		position := extractVehiclePosition(testLogger(), rawItem, collectedAt, "west")
		if position == nil {
			t.Fatal("expected a position")
		}
		var rawData struct {
			Sector       string        `json:"sector"`
			OriginalItem radarMovement `json:"original_item"`
		}
		err := json.Unmarshal(position.RawData, &rawData)
		is.NoErr(err)
		is.Equal(rawData.Sector, "west")
		is.Equal(rawData.OriginalItem.TripId, "trip-9")
	})
}

func TestResolveVehicleId(t *testing.T) {
	is := is.New(t)
	collectedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tripDirection := "somewhere"
	item := &radarMovement{
		TripId: "movement-trip-id",
		Trip:   &apiTrip{Id: "nested-trip-id", Direction: &tripDirection},
	}
	is.Equal(resolveVehicleId(item, 52.5, 13.4, collectedAt), "nested-trip-id")

	item.Trip = nil
	is.Equal(resolveVehicleId(item, 52.5, 13.4, collectedAt), "movement-trip-id")

	item.TripId = ""
	item.Line = &apiLine{Name: "M4"}
	is.Equal(resolveVehicleId(item, 52.5, 13.4, collectedAt),
		fmt.Sprintf("M4_52.5_13.4_%d", collectedAt.Unix()))

	item.Line = nil
	is.Equal(resolveVehicleId(item, 52.5, 13.4, collectedAt),
		fmt.Sprintf("unknown_52.5_13.4_%d", collectedAt.Unix()))
}

func TestCollectAllVehiclesIsolatesSectorFailures(t *testing.T) {
	is := is.New(t)

	movements := `{"movements":[
		{"tripId":"trip-a","line":{"name":"U6"},"location":{"latitude":52.5,"longitude":13.4}},
		{"tripId":"trip-b","line":{"name":"S7"},"location":{"latitude":52.52,"longitude":13.41}}
	]}`

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the northwest sector fails every attempt, the others succeed
		if r.FormValue("north") == "52.6" && r.FormValue("west") == "13.1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(movements))
	}))
	defer svr.Close()

	var sleeps []time.Duration
	api := testAPIClient(svr.URL, &sleeps)
	rec := &testRecorder{}
	tracker := makeVehicleTracker(testLogger(), api, rec, 100)

	total := tracker.collectAllVehicles()

	// eight healthy sectors times two movements each
	is.Equal(total, 16)
	is.Equal(len(rec.positions), 16)

	is.Equal(len(rec.statusUpdates), 2)
	is.Equal(rec.statusUpdates[0].collectorName, vehicleCollectorName)
	is.Equal(rec.statusUpdates[0].status, transit.CollectorStatusRunning)
	is.Equal(rec.statusUpdates[1].status, transit.CollectorStatusIdle)
	is.Equal(rec.statusUpdates[1].recordsDelta, 16)
}

func TestCollectAllVehiclesSharesOneTimestamp(t *testing.T) {
	is := is.New(t)

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"movements":[
			{"tripId":"trip-a","line":{"name":"U6"},"location":{"latitude":52.5,"longitude":13.4}}
		]}`))
	}))
	defer svr.Close()

	var sleeps []time.Duration
	api := testAPIClient(svr.URL, &sleeps)
	rec := &testRecorder{}
	tracker := makeVehicleTracker(testLogger(), api, rec, 100)

	tracker.collectAllVehicles()

	if len(rec.positions) < 2 {
		t.Fatalf("expected at least two positions, got %d", len(rec.positions))
	}
	first := rec.positions[0].Timestamp
	for _, position := range rec.positions[1:] {
		is.Equal(position.Timestamp, first)
	}
}

func TestCollectAllVehiclesCountsOnlyPersistedRecords(t *testing.T) {
	is := is.New(t)

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"movements":[
			{"tripId":"trip-a","line":{"name":"U6"},"location":{"latitude":52.5,"longitude":13.4}}
		]}`))
	}))
	defer svr.Close()

	var sleeps []time.Duration
	api := testAPIClient(svr.URL, &sleeps)
	rec := &testRecorder{failInserts: true}
	tracker := makeVehicleTracker(testLogger(), api, rec, 100)

	total := tracker.collectAllVehicles()
	is.Equal(total, 0)
	is.Equal(rec.statusUpdates[1].recordsDelta, 0)
}
