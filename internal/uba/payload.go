package uba

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Measurement is one component entry of a sample: a raw code and a value in
// µg/m³ after any adapter-side unit correction.
type Measurement struct {
	Code  int
	Value float64
}

// Sample is one timestamp key of a decoded payload. Key keeps the raw
// station-local timestamp string; it sorts lexicographically into
// chronological order, which Ingest relies on.
type Sample struct {
	Key          string
	Index        int
	HasIndex     bool
	Incomplete   bool
	Measurements []Measurement
}

// ShapeAdapter decodes one of the API's historical payload shapes into
// samples. The engine itself never sees raw JSON; selecting an adapter by
// configuration is what keeps the two API generations out of each other's
// code paths.
type ShapeAdapter interface {
	Name() string
	Samples(body []byte, station string) ([]Sample, error)
}

// AirQualityAdapter decodes the bulk per-station shape:
//
//	{"data": {"<station>": {"<ts>": [endTime, index, incomplete, [code, value, ...], ...]}}}
type AirQualityAdapter struct{}

func NewAirQualityAdapter() *AirQualityAdapter { return &AirQualityAdapter{} }

func (a *AirQualityAdapter) Name() string { return "airquality" }

func (a *AirQualityAdapter) Samples(body []byte, station string) ([]Sample, error) {
	root, err := payloadObject(body)
	if err != nil {
		return nil, err
	}

	raw, ok := root["data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing data field", ErrDecode)
	}

	var stations map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, fmt.Errorf("%w: data field: %v", ErrDecode, err)
	}

	rows := stations[station]
	samples := make([]Sample, 0, len(rows))
	for key, row := range rows {
		sample, err := decodeAirQualityRow(key, row)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func decodeAirQualityRow(key string, row json.RawMessage) (Sample, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return Sample{}, fmt.Errorf("%w: sample %q: %v", ErrDecode, key, err)
	}
	if len(fields) < 3 {
		return Sample{}, fmt.Errorf("%w: sample %q has %d fields, want at least 3", ErrDecode, key, len(fields))
	}

	var end string
	if err := json.Unmarshal(fields[0], &end); err != nil {
		return Sample{}, fmt.Errorf("%w: sample %q end time: %v", ErrDecode, key, err)
	}

	var index, incomplete int
	if err := json.Unmarshal(fields[1], &index); err != nil {
		return Sample{}, fmt.Errorf("%w: sample %q index: %v", ErrDecode, key, err)
	}
	if err := json.Unmarshal(fields[2], &incomplete); err != nil {
		return Sample{}, fmt.Errorf("%w: sample %q completeness: %v", ErrDecode, key, err)
	}

	sample := Sample{
		Key:        key,
		Index:      index,
		HasIndex:   true,
		Incomplete: incomplete != 0,
	}

	for i, field := range fields[3:] {
		var tuple []float64
		if err := json.Unmarshal(field, &tuple); err != nil {
			return Sample{}, fmt.Errorf("%w: sample %q component %d: %v", ErrDecode, key, i, err)
		}
		if len(tuple) < 2 {
			return Sample{}, fmt.Errorf("%w: sample %q component %d has %d fields, want at least 2", ErrDecode, key, i, len(tuple))
		}
		sample.Measurements = append(sample.Measurements, Measurement{
			Code:  int(tuple[0]),
			Value: tuple[1],
		})
	}

	return sample, nil
}

// MeasuresAdapter decodes the legacy single-component shape:
//
//	{"time_scope": ["<ts>", ...], "data": [[[value], ...]]}
//
// One request covers one component, so the adapter is bound to the component
// it was built for and applies the unit correction for it.
type MeasuresAdapter struct {
	code int
	name string
}

func NewMeasuresAdapter(code int, name string) *MeasuresAdapter {
	return &MeasuresAdapter{code: code, name: name}
}

func (m *MeasuresAdapter) Name() string { return "measures" }

func (m *MeasuresAdapter) Samples(body []byte, _ string) ([]Sample, error) {
	root, err := payloadObject(body)
	if err != nil {
		return nil, err
	}

	raw, ok := root["time_scope"]
	if !ok {
		return nil, fmt.Errorf("%w: missing time_scope field", ErrDecode)
	}
	var scope []string
	if err := json.Unmarshal(raw, &scope); err != nil {
		return nil, fmt.Errorf("%w: time_scope field: %v", ErrDecode, err)
	}

	raw, ok = root["data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing data field", ErrDecode)
	}
	var series [][][]float64
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("%w: data field: %v", ErrDecode, err)
	}

	if len(series) == 0 {
		return nil, nil
	}
	if len(series[0]) != len(scope) {
		return nil, fmt.Errorf("%w: %d values for %d time slots", ErrDecode, len(series[0]), len(scope))
	}

	samples := make([]Sample, 0, len(scope))
	for i, key := range scope {
		sample := Sample{Key: key}
		row := series[0][i]
		// A missing or non-positive value means no measurement was taken,
		// not a zero reading.
		if len(row) > 0 && row[0] > 0 {
			sample.Measurements = []Measurement{{
				Code:  m.code,
				Value: NormalizeValue(m.name, row[0]),
			}}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// NormalizeValue corrects the unit quirk of the legacy endpoint: CO comes
// back in mg/m³ while every other component reports µg/m³. A CO value small
// enough to plausibly be milligrams is scaled up to match.
func NormalizeValue(component string, v float64) float64 {
	if strings.EqualFold(component, "CO") && v <= 100 {
		return v * 1000
	}
	return v
}

// payloadObject distinguishes "not a JSON object at all" from a structural
// mismatch inside one: the former is ErrMalformedPayload, everything after
// it ErrDecode.
func payloadObject(body []byte) (map[string]json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return root, nil
}
