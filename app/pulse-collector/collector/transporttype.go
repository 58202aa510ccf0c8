package collector

import (
	"regexp"
	"strings"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
)

// Line name patterns carry more signal than the mode/product fields the API
// reports, which are unreliable or absent for many Berlin line codes. Name
// rules run first, in a fixed order, because the categories overlap lexically:
// S41 would match the generic S-Bahn pattern if the ring rule did not run
// before it.
var (
	subwayLinePattern      = regexp.MustCompile(`^U[1-9]$`)
	suburbanLinePattern    = regexp.MustCompile(`^S[1-9]$|^S[2-8][0-9]$`)
	metroTramLinePattern   = regexp.MustCompile(`^M[1-9][0-9]?$`)
	expressBusLinePattern  = regexp.MustCompile(`^X[1-9][0-9]?$`)
	nightBusLinePattern    = regexp.MustCompile(`^N[1-9][0-9]?$`)
	regionalExpressPattern = regexp.MustCompile(`^RE[1-9][0-9]?$`)
	regionalBahnPattern    = regexp.MustCompile(`^RB[1-9][0-9]?$`)
	numberedBusPattern     = regexp.MustCompile(`^[1-9][0-9][0-9]+$`)
)

// tramLineNumbers are the one and two digit line numbers operated as trams,
// everything else numeric is a bus
var tramLineNumbers = map[string]bool{
	"12": true, "16": true, "18": true, "21": true, "27": true,
	"37": true, "50": true, "60": true, "61": true, "62": true,
	"63": true, "67": true, "68": true,
}

// lineNameRule pairs a predicate over the normalized line name with the
// transport type it implies
type lineNameRule struct {
	matches       func(name string) bool
	transportType transit.TransportType
}

// lineNameRules is evaluated in order, first match wins
var lineNameRules = []lineNameRule{
	{subwayLinePattern.MatchString, transit.Subway},
	{func(name string) bool { return name == "S41" || name == "S42" }, transit.Ring},
	{suburbanLinePattern.MatchString, transit.Suburban},
	{metroTramLinePattern.MatchString, transit.Tram},
	{func(name string) bool { return tramLineNumbers[name] }, transit.Tram},
	{expressBusLinePattern.MatchString, transit.Bus},
	{nightBusLinePattern.MatchString, transit.Bus},
	{regionalExpressPattern.MatchString, transit.Regional},
	{regionalBahnPattern.MatchString, transit.Regional},
	{func(name string) bool {
		return strings.Contains(name, "BUS") || numberedBusPattern.MatchString(name)
	}, transit.Bus},
}

// modeProductMapping maps the API's mode/product keywords to transport types
var modeProductMapping = map[string]transit.TransportType{
	"suburban": transit.Suburban,
	"subway":   transit.Subway,
	"tram":     transit.Tram,
	"bus":      transit.Bus,
	"ferry":    transit.Ferry,
	"express":  transit.Regional,
	"regional": transit.Regional,
}

// classifyTransportType determines the transport type of a line from its name
// and the mode/product keywords the API reports. Total, every input resolves
// to a member of the transit.TransportType enum.
func classifyTransportType(name string, mode string, product string) transit.TransportType {
	lineName := strings.ToUpper(strings.TrimSpace(name))

	if lineName != "" {
		for _, rule := range lineNameRules {
			if rule.matches(lineName) {
				return rule.transportType
			}
		}
	}

	if transportType, ok := modeProductMapping[strings.ToLower(mode)]; ok {
		return transportType
	}
	if transportType, ok := modeProductMapping[strings.ToLower(product)]; ok {
		return transportType
	}

	if lineName != "" {
		if strings.Contains(lineName, "TRAM") || strings.Contains(lineName, "STR") {
			return transit.Tram
		}
		if strings.Contains(lineName, "BAHN") || strings.Contains(lineName, "TRAIN") {
			return transit.Suburban
		}
	}

	return transit.Bus
}
