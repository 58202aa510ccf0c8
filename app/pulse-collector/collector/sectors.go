package collector

// sector is one fixed geographic bounding box used to page through the radar
// endpoint. Together the sectors cover the Berlin city area.
type sector struct {
	name  string
	north float64
	south float64
	west  float64
	east  float64
}

var berlinSectors = []sector{
	{name: "central", north: 52.55, south: 52.48, west: 13.35, east: 13.45},
	{name: "east", north: 52.55, south: 52.48, west: 13.45, east: 13.55},
	{name: "west", north: 52.55, south: 52.48, west: 13.25, east: 13.35},
	{name: "north", north: 52.60, south: 52.55, west: 13.30, east: 13.50},
	{name: "south", north: 52.48, south: 52.42, west: 13.30, east: 13.50},
	{name: "northeast", north: 52.60, south: 52.55, west: 13.50, east: 13.70},
	{name: "southeast", north: 52.48, south: 52.42, west: 13.50, east: 13.70},
	{name: "northwest", north: 52.60, south: 52.55, west: 13.10, east: 13.30},
	{name: "southwest", north: 52.48, south: 52.40, west: 13.10, east: 13.30},
}
