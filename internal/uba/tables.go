// Package uba ingests time series from the Umweltbundesamt air data API and
// turns them into discrete, de-duplicated reading events. The API reports
// station-local timestamps in an hour-ending convention where the last hourly
// bucket of a day is hour "24"; everything in this package normalizes to
// absolute time before any comparison happens.
package uba

import (
	"fmt"
	"sort"
	"strconv"
)

// Reading names used for the per-sample index emissions.
const (
	IndexReading     = "luftqualitaetsindex"
	IndexNameReading = "luftqualitaetsindex_name"
)

// DefaultComponents maps the component codes of the reference deployment.
func DefaultComponents() map[string]string {
	return map[string]string{
		"1": "PM10",
		"2": "CO",
		"3": "O3",
		"4": "SO2",
		"5": "NO2",
	}
}

// DefaultIndexNames labels the 0 (best) to 4 (worst) index scale.
func DefaultIndexNames() []string {
	return []string{"sehr gut", "gut", "mäßig", "schlecht", "sehr schlecht"}
}

// Tables holds the immutable code lookups the engine works with. They are
// built once from configuration and shared read-only afterwards.
type Tables struct {
	components map[int]string
	codes      map[string]int
	indexNames []string
}

// NewTables validates and freezes the component and index lookups. Component
// keys arrive as strings because they come straight from flag parsing.
func NewTables(components map[string]string, indexNames []string) (*Tables, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("component table is empty")
	}
	if len(indexNames) == 0 {
		return nil, fmt.Errorf("index name table is empty")
	}

	t := &Tables{
		components: make(map[int]string, len(components)),
		codes:      make(map[string]int, len(components)),
		indexNames: append([]string(nil), indexNames...),
	}

	for key, name := range components {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("component code %q: %w", key, err)
		}
		if name == "" {
			return nil, fmt.Errorf("component code %q has no name", key)
		}
		if prev, dup := t.components[code]; dup {
			return nil, fmt.Errorf("component code %d mapped to both %q and %q", code, prev, name)
		}
		t.components[code] = name
		t.codes[name] = code
	}

	return t, nil
}

// ComponentName resolves a component code to its canonical reading name.
func (t *Tables) ComponentName(code int) (string, bool) {
	name, ok := t.components[code]
	return name, ok
}

// ComponentCode resolves a canonical name back to its code.
func (t *Tables) ComponentCode(name string) (int, bool) {
	code, ok := t.codes[name]
	return code, ok
}

// IndexName resolves an air quality index code to its label.
func (t *Tables) IndexName(code int) (string, bool) {
	if code < 0 || code >= len(t.indexNames) {
		return "", false
	}
	return t.indexNames[code], true
}

// ComponentNames lists the configured names in ascending code order.
func (t *Tables) ComponentNames() []string {
	codes := make([]int, 0, len(t.components))
	for code := range t.components {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	names := make([]string, 0, len(codes))
	for _, code := range codes {
		names = append(names, t.components[code])
	}
	return names
}
