package collector

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TargetRoute describes one route whose geometry should be discovered through
// journey planning
type TargetRoute struct {
	Name          string `yaml:"name" validate:"required"`
	TransportType string `yaml:"transport_type" validate:"required,oneof=suburban subway tram bus ferry regional ring"`
	Description   string `yaml:"description"`
	// Endpoints are two stop ids, a journey between them is expected to ride
	// the target route
	Endpoints []string `yaml:"endpoints" validate:"required,len=2,dive,required"`
}

type routesFile struct {
	Routes []TargetRoute `yaml:"routes"`
}

// LoadTargetRoutes reads and validates a target-routes YAML file. An empty
// path falls back to the built-in default table.
func LoadTargetRoutes(path string) ([]TargetRoute, error) {
	if path == "" {
		return defaultTargetRoutes, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routes file: %w", err)
	}
	var file routesFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing routes file %s: %w", path, err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("routes file %s contains no routes", path)
	}
	v := validator.New()
	for _, route := range file.Routes {
		if err = v.Struct(route); err != nil {
			return nil, fmt.Errorf("invalid route entry %q: %w", route.Name, err)
		}
	}
	return file.Routes, nil
}

// defaultTargetRoutes covers the major S-Bahn, Ring, U-Bahn, tram and bus
// lines, with journey endpoints at well-known central stops
var defaultTargetRoutes = []TargetRoute{
	{Name: "S7", TransportType: "suburban",
		Description: "S7 Line: Ahrensfelde - Potsdam Hbf",
		Endpoints:   []string{"900100003", "900100002"}},
	{Name: "S5", TransportType: "suburban",
		Description: "S5 Line: Strausberg Nord - Spandau",
		Endpoints:   []string{"900100001", "900100003"}},
	{Name: "S1", TransportType: "suburban",
		Description: "S1 Line: Oranienburg - Wannsee",
		Endpoints:   []string{"900100002", "900100004"}},
	{Name: "S3", TransportType: "suburban",
		Description: "S3 Line: Erkner - Spandau",
		Endpoints:   []string{"900120005", "900100003"}},
	{Name: "S41", TransportType: "ring",
		Description: "S41 Ring: clockwise circle",
		Endpoints:   []string{"900058102", "900245025"}},
	{Name: "S42", TransportType: "ring",
		Description: "S42 Ring: counter-clockwise circle",
		Endpoints:   []string{"900245025", "900058102"}},
	{Name: "U6", TransportType: "subway",
		Description: "U6 Line: Alt-Tegel - Alt-Mariendorf",
		Endpoints:   []string{"900100001", "900100004"}},
	{Name: "U2", TransportType: "subway",
		Description: "U2 Line: Pankow - Ruhleben",
		Endpoints:   []string{"900100004", "900003201"}},
	{Name: "M1", TransportType: "tram",
		Description: "M1 MetroTram: Rosenthal Nord - Am Kupfergraben",
		Endpoints:   []string{"900100001", "900100003"}},
	{Name: "12", TransportType: "tram",
		Description: "Tram 12: Am Kupfergraben - Pasedagplatz",
		Endpoints:   []string{"900100003", "900100002"}},
	{Name: "100", TransportType: "bus",
		Description: "Bus 100: Alexanderplatz - Zoologischer Garten",
		Endpoints:   []string{"900100003", "900003201"}},
	{Name: "200", TransportType: "bus",
		Description: "Bus 200: Prenzlauer Berg - Potsdamer Platz",
		Endpoints:   []string{"900100003", "900100004"}},
}
