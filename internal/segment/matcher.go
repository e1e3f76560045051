package segment

import (
	"strconv"
	"strings"

	"github.com/essodond/Evexticket/internal/domain"
)

// descriptor is a parsed endpoint text.
type descriptor struct {
	raw      string
	norm     string
	stripped string
	id       int64
	numeric  bool
}

func parseDescriptor(text string) descriptor {
	d := descriptor{
		raw:      strings.TrimSpace(text),
		norm:     Normalize(text),
		stripped: StripQualifier(text),
	}
	if id, err := strconv.ParseInt(d.raw, 10, 64); err == nil && id > 0 {
		d.id = id
		d.numeric = true
	}
	return d
}

func (d descriptor) empty() bool { return d.norm == "" }

// Matcher is one strategy of the resolution cascade.
type Matcher struct {
	Name  string
	match func(d descriptor, s domain.Stop) bool
}

// Chain is the resolution cascade, tried in order until one strategy
// yields at least one stop.
var Chain = []Matcher{
	{Name: "stop_id", match: func(d descriptor, s domain.Stop) bool {
		return d.numeric && s.ID == d.id
	}},
	{Name: "city_id", match: func(d descriptor, s domain.Stop) bool {
		return d.numeric && s.CityID == d.id
	}},
	{Name: "exact", match: func(d descriptor, s domain.Stop) bool {
		return Normalize(s.CityName) == d.norm
	}},
	{Name: "exact_stripped", match: func(d descriptor, s domain.Stop) bool {
		return d.stripped != "" && StripQualifier(s.CityName) == d.stripped
	}},
	{Name: "prefix", match: func(d descriptor, s domain.Stop) bool {
		return d.stripped != "" && strings.HasPrefix(Normalize(s.CityName), d.stripped)
	}},
	{Name: "contains", match: func(d descriptor, s domain.Stop) bool {
		return d.stripped != "" && strings.Contains(Normalize(s.CityName), d.stripped)
	}},
}

// Candidates returns the stops matched by the first successful strategy of
// the chain, in stop-list order, along with that strategy's name.
func Candidates(stops domain.StopList, text string) ([]domain.Stop, string) {
	d := parseDescriptor(text)
	if d.empty() {
		return nil, ""
	}

	for _, m := range Chain {
		var out []domain.Stop
		for i := 0; i < stops.Len(); i++ {
			if s := stops.At(i); m.match(d, s) {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out, m.Name
		}
	}

	return nil, ""
}

// matchesEndpoint reports whether text designates a route's declared
// departure or arrival city.
func matchesEndpoint(text string, cityID int64, cityName string) bool {
	d := parseDescriptor(text)
	if d.empty() {
		return false
	}
	if d.numeric && d.id == cityID {
		return true
	}

	name := Normalize(cityName)
	return strings.Contains(name, d.norm) || (d.stripped != "" && strings.Contains(name, d.stripped))
}
