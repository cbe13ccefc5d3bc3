// Package catalog holds the static destination and theme data the API and
// the planners draw from.
package catalog

import "strings"

// Destination is a place the service plans trips to.
type Destination struct {
	Name        string   `json:"name"`
	Region      string   `json:"region"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Theme is a trip style a request can ask for.
type Theme struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var destinations = []Destination{
	{"Delhi", "North India", "Capital city with rich history", []string{"culture", "heritage", "food"}},
	{"Mumbai", "West India", "Financial capital and Bollywood hub", []string{"culture", "food"}},
	{"Goa", "West Coast", "Beach paradise with Portuguese heritage", []string{"beach", "adventure", "food"}},
	{"Bangalore", "South India", "Garden city and technology hub", []string{"food", "culture"}},
	{"Rishikesh", "Uttarakhand", "Yoga capital of the world", []string{"wellness", "adventure"}},
	{"Jaipur", "Rajasthan", "Pink city with royal heritage", []string{"heritage", "culture"}},
	{"Kerala", "South India", "Backwaters, beaches and spice country", []string{"wellness", "beach", "food"}},
	{"Manali", "Himachal Pradesh", "Hill station in the Himalayas", []string{"adventure", "wellness"}},
	{"Udaipur", "Rajasthan", "City of lakes and palaces", []string{"heritage", "culture"}},
	{"Varanasi", "North India", "Ancient city on the Ganges", []string{"heritage", "wellness", "culture"}},
}

var themes = []Theme{
	{"adventure", "Thrilling outdoor activities and sports"},
	{"culture", "Local traditions, arts and city life"},
	{"beach", "Coastal relaxation and water sports"},
	{"wellness", "Yoga, meditation and restorative stays"},
	{"food", "Street food, regional kitchens and markets"},
	{"heritage", "Forts, palaces and historic quarters"},
}

// Destinations returns the catalog of destinations.
func Destinations() []Destination {
	return append([]Destination(nil), destinations...)
}

// Themes returns the catalog of trip themes.
func Themes() []Theme {
	return append([]Theme(nil), themes...)
}

// ValidTheme reports whether name is a known theme. The empty theme is not
// valid here; callers treat it as "no preference" before asking.
func ValidTheme(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range themes {
		if t.Name == name {
			return true
		}
	}
	return false
}

// FindDestination looks a destination up by name, case-insensitively.
func FindDestination(name string) (Destination, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range destinations {
		if strings.ToLower(d.Name) == name {
			return d, true
		}
	}
	return Destination{}, false
}
