package collector

import (
	"fmt"
	"testing"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
)

func TestClassifyTransportType(t *testing.T) {
	type args struct {
		name    string
		mode    string
		product string
	}
	tests := []struct {
		name string
		args args
		want transit.TransportType
	}{
		{
			name: "u-bahn line",
			args: args{name: "U8"},
			want: transit.Subway,
		},
		{
			name: "ring bahn clockwise beats s-bahn pattern",
			args: args{name: "S41"},
			want: transit.Ring,
		},
		{
			name: "ring bahn counter-clockwise",
			args: args{name: "S42"},
			want: transit.Ring,
		},
		{
			name: "single digit s-bahn",
			args: args{name: "S7"},
			want: transit.Suburban,
		},
		{
			name: "two digit s-bahn",
			args: args{name: "S85"},
			want: transit.Suburban,
		},
		{
			name: "metrotram",
			args: args{name: "M10"},
			want: transit.Tram,
		},
		{
			name: "numbered tram line",
			args: args{name: "68"},
			want: transit.Tram,
		},
		{
			name: "two digit number not in tram set is unresolved by name rules",
			args: args{name: "65", mode: "bus"},
			want: transit.Bus,
		},
		{
			name: "express bus",
			args: args{name: "X36"},
			want: transit.Bus,
		},
		{
			name: "night bus",
			args: args{name: "N7"},
			want: transit.Bus,
		},
		{
			name: "regional express",
			args: args{name: "RE1"},
			want: transit.Regional,
		},
		{
			name: "regional bahn",
			args: args{name: "RB14"},
			want: transit.Regional,
		},
		{
			name: "three digit bus route",
			args: args{name: "245"},
			want: transit.Bus,
		},
		{
			name: "name containing bus keyword",
			args: args{name: "SEV-BUS"},
			want: transit.Bus,
		},
		{
			name: "lowercase name is normalized",
			args: args{name: "u2"},
			want: transit.Subway,
		},
		{
			name: "name with surrounding whitespace",
			args: args{name: " S41 "},
			want: transit.Ring,
		},
		{
			name: "mode fallback when name matches nothing",
			args: args{name: "F10", mode: "ferry"},
			want: transit.Ferry,
		},
		{
			name: "express mode maps to regional",
			args: args{mode: "express"},
			want: transit.Regional,
		},
		{
			name: "product consulted after mode",
			args: args{name: "F12", mode: "watercraft", product: "ferry"},
			want: transit.Ferry,
		},
		{
			name: "tram substring fallback",
			args: args{name: "ERSATZTRAM"},
			want: transit.Tram,
		},
		{
			name: "str substring fallback",
			args: args{name: "STR 99A"},
			want: transit.Tram,
		},
		{
			name: "bahn substring fallback",
			args: args{name: "SONDERBAHN"},
			want: transit.Suburban,
		},
		{
			name: "empty descriptor falls back to bus",
			args: args{},
			want: transit.Bus,
		},
		{
			name: "unknown everything falls back to bus",
			args: args{name: "???", mode: "zeppelin", product: "cable"},
			want: transit.Bus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTransportType(tt.args.name, tt.args.mode, tt.args.product)
			if got != tt.want {
				t.Errorf("classifyTransportType(%q, %q, %q) = %v, want %v",
					tt.args.name, tt.args.mode, tt.args.product, got, tt.want)
			}
		})
	}
}

func TestClassifyTransportTypeAllSubwayLines(t *testing.T) {
	for i := 1; i <= 9; i++ {
		name := fmt.Sprintf("U%d", i)
		if got := classifyTransportType(name, "", ""); got != transit.Subway {
			t.Errorf("classifyTransportType(%q) = %v, want subway", name, got)
		}
	}
}

// classification is total, every input resolves to a member of the enum
func TestClassifyTransportTypeTotal(t *testing.T) {
	inputs := []struct{ name, mode, product string }{
		{"", "", ""},
		{"S41", "", ""},
		{"garbage with spaces", "nonsense", "nonsense"},
		{"999999", "", ""},
		{"U0", "", ""},
		{"M100", "", ""},
		{"RB", "", ""},
		{"\t\n", "", ""},
	}
	for _, input := range inputs {
		got := classifyTransportType(input.name, input.mode, input.product)
		if !transit.IsValidTransportType(string(got)) {
			t.Errorf("classifyTransportType(%q, %q, %q) returned out-of-enum value %q",
				input.name, input.mode, input.product, got)
		}
	}
}
