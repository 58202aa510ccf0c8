package collector

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/nats-io/nats.go"
)

const routeMapperName = "route_mapper"

// routeMapper discovers route geometry by asking the journey planner for a
// representative trip on each target route and reading its polyline
type routeMapper struct {
	log    *log.Logger
	api    *apiClient
	rec    recorder
	routes []TargetRoute

	// pause between routes keeps the sequential discovery under the API's
	// rate limits
	pauseBetweenRoutes time.Duration
}

func makeRouteMapper(log *log.Logger, api *apiClient, rec recorder, routes []TargetRoute) *routeMapper {
	return &routeMapper{
		log:                log,
		api:                api,
		rec:                rec,
		routes:             routes,
		pauseBetweenRoutes: 2 * time.Second,
	}
}

// DiscoverRouteGeometries runs one discovery pass over the target routes and
// stores the geometries found. Used once at startup and again on the periodic
// refresh. Returns the number of routes stored.
func DiscoverRouteGeometries(log *log.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	cfg Config,
	routes []TargetRoute) int {

	mapper := makeRouteMapper(log, cfg.newAPIClient(log), makeDBRecorder(log, db, natsConn), routes)
	return mapper.discoverAll()
}

// discoverAll processes the target routes sequentially, route failures are
// collected into the status message rather than aborting the pass
func (m *routeMapper) discoverAll() int {
	m.rec.upsertCollectionStatus(routeMapperName, transit.CollectorStatusRunning, 0, nil)

	successfulRoutes := 0
	var failedRoutes []string
	for i, route := range m.routes {
		if i > 0 {
			m.api.sleep(m.pauseBetweenRoutes)
		}
		m.log.Printf("discovering geometry for route %s (%s)\n", route.Name, route.Description)
		if m.discoverRoute(route) {
			successfulRoutes++
		} else {
			failedRoutes = append(failedRoutes, route.Name)
		}
	}

	message := fmt.Sprintf("completed: %d/%d routes successful", successfulRoutes, len(m.routes))
	if len(failedRoutes) > 0 {
		message += ", failed: " + strings.Join(failedRoutes, ", ")
	}
	if successfulRoutes > 0 {
		m.rec.upsertCollectionStatus(routeMapperName, transit.CollectorStatusIdle, successfulRoutes, &message)
	} else {
		m.rec.upsertCollectionStatus(routeMapperName, transit.CollectorStatusWarning, 0, &message)
	}
	m.log.Printf("route geometry discovery completed: %s\n", message)
	return successfulRoutes
}

// discoverRoute finds a representative trip for the route and stores its
// geometry
func (m *routeMapper) discoverRoute(route TargetRoute) bool {
	tripId, err := m.findRouteTripId(route)
	if err != nil {
		m.log.Printf("error finding journey for route %s. error: %v\n", route.Name, err)
		return false
	}
	if tripId == "" {
		m.log.Printf("no matching journey found for route %s\n", route.Name)
		return false
	}

	geometry, err := m.fetchTripGeometry(tripId, route)
	if err != nil {
		m.log.Printf("error fetching geometry for route %s. error: %v\n", route.Name, err)
		return false
	}
	if geometry == nil {
		m.log.Printf("no geometry data for route %s\n", route.Name)
		return false
	}

	return m.rec.recordRouteGeometry(geometry)
}

// journeyLeg is one leg of a planned journey
type journeyLeg struct {
	TripId string   `json:"tripId"`
	Line   *apiLine `json:"line"`
}

// findRouteTripId plans journeys between the route's endpoint stops and
// returns the trip id of the first leg ridden on the target line. Empty when
// no planned journey uses the line.
func (m *routeMapper) findRouteTripId(route TargetRoute) (string, error) {
	params := url.Values{}
	params.Set("from", route.Endpoints[0])
	params.Set("to", route.Endpoints[1])
	params.Set("results", "5")
	params.Set("stopovers", "true")

	body, err := m.api.getJSON("/journeys", params)
	if err != nil || body == nil {
		return "", err
	}

	var response struct {
		Journeys []struct {
			Legs []journeyLeg `json:"legs"`
		} `json:"journeys"`
	}
	if err = json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unable to decode journeys response: %w", err)
	}

	for _, journey := range response.Journeys {
		for _, leg := range journey.Legs {
			if leg.Line != nil && strings.EqualFold(leg.Line.Name, route.Name) && leg.TripId != "" {
				return leg.TripId, nil
			}
		}
	}
	return "", nil
}

// tripDetail is the trip object from the /trips/{id} endpoint
type tripDetail struct {
	Id        string          `json:"id"`
	Direction *string         `json:"direction"`
	Polyline  json.RawMessage `json:"polyline"`
	Stopovers []tripStopover  `json:"stopovers"`
}

type tripStopover struct {
	Stop *struct {
		Id       string       `json:"id"`
		Name     string       `json:"name"`
		Location *apiLocation `json:"location"`
	} `json:"stop"`
	Arrival   *string `json:"arrival"`
	Departure *string `json:"departure"`
}

// routeStop is the stored shape of one stop along a route
type routeStop struct {
	StopId    string  `json:"stop_id"`
	StopName  string  `json:"stop_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Arrival   *string `json:"arrival"`
	Departure *string `json:"departure"`
}

// fetchTripGeometry loads trip details with the polyline geometry and builds
// the RouteGeometry row. Returns nil without error when the trip carries no
// polyline.
func (m *routeMapper) fetchTripGeometry(tripId string, route TargetRoute) (*transit.RouteGeometry, error) {
	params := url.Values{}
	params.Set("polyline", "true")
	params.Set("stopovers", "true")

	body, err := m.api.getJSON("/trips/"+url.PathEscape(tripId), params)
	if err != nil || body == nil {
		return nil, err
	}

	trip, err := decodeTripDetail(body)
	if err != nil {
		return nil, fmt.Errorf("unable to decode trip response: %w", err)
	}
	if len(trip.Polyline) == 0 || string(trip.Polyline) == "null" {
		return nil, nil
	}

	stops := make([]routeStop, 0, len(trip.Stopovers))
	for _, stopover := range trip.Stopovers {
		if stopover.Stop == nil || stopover.Stop.Location == nil {
			continue
		}
		location := stopover.Stop.Location
		if location.Latitude == nil || location.Longitude == nil {
			continue
		}
		stops = append(stops, routeStop{
			StopId:    stopover.Stop.Id,
			StopName:  stopover.Stop.Name,
			Latitude:  *location.Latitude,
			Longitude: *location.Longitude,
			Arrival:   stopover.Arrival,
			Departure: stopover.Departure,
		})
	}
	stopsData, err := json.Marshal(stops)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal stops data: %w", err)
	}

	return &transit.RouteGeometry{
		RouteId:         strings.ToLower(route.Name),
		LineName:        route.Name,
		TransportType:   transit.TransportType(route.TransportType),
		Direction:       trip.Direction,
		TripId:          emptyToNil(trip.Id),
		GeometryGeoJSON: types.JSONText(trip.Polyline),
		StopsData:       stopsData,
	}, nil
}

// decodeTripDetail accepts both response shapes, the trip wrapped in a "trip"
// key and the bare trip object
func decodeTripDetail(body []byte) (*tripDetail, error) {
	var wrapped struct {
		Trip *tripDetail `json:"trip"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Trip != nil {
		return wrapped.Trip, nil
	}
	var bare tripDetail
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return &bare, nil
}
