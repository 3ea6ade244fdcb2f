package uba_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hausgeist/luftmetrics/internal/uba"
)

const airQualityBody = `{
  "request": {"station": "509"},
  "data": {
    "509": {
      "2020-01-21 17:00:00": ["2020-01-21 18:00:00", 1, 0, [1, 42.0, 2], [5, 18.0, 1]],
      "2020-01-21 18:00:00": ["2020-01-21 19:00:00", 2, 1, [1, 44.5, 2]]
    }
  }
}`

func findSample(t *testing.T, samples []uba.Sample, key string) uba.Sample {
	t.Helper()
	for _, s := range samples {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("no sample with key %q", key)
	return uba.Sample{}
}

func TestAirQualityAdapter(t *testing.T) {
	adapter := uba.AirQualityAdapter{}

	samples, err := adapter.Samples([]byte(airQualityBody), "509")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	s := findSample(t, samples, "2020-01-21 17:00:00")
	assert.Equal(t, 1, s.Index)
	assert.True(t, s.HasIndex)
	assert.False(t, s.Incomplete)
	require.Len(t, s.Measurements, 2)
	assert.Equal(t, uba.Measurement{Code: 1, Value: 42}, s.Measurements[0])
	assert.Equal(t, uba.Measurement{Code: 5, Value: 18}, s.Measurements[1])

	s = findSample(t, samples, "2020-01-21 18:00:00")
	assert.Equal(t, 2, s.Index)
	assert.True(t, s.Incomplete)
	require.Len(t, s.Measurements, 1)
	assert.Equal(t, uba.Measurement{Code: 1, Value: 44.5}, s.Measurements[0])
}

func TestAirQualityAdapter_StationAbsent(t *testing.T) {
	adapter := uba.AirQualityAdapter{}

	samples, err := adapter.Samples([]byte(airQualityBody), "1337")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestAirQualityAdapter_Malformed(t *testing.T) {
	adapter := uba.AirQualityAdapter{}

	for _, body := range []string{"[]", "{", `"quoted"`, "42"} {
		_, err := adapter.Samples([]byte(body), "509")
		assert.ErrorIs(t, err, uba.ErrMalformedPayload, "body %q", body)
	}
}

func TestAirQualityAdapter_Decode(t *testing.T) {
	adapter := uba.AirQualityAdapter{}

	for name, body := range map[string]string{
		"no data":         `{"request": {}}`,
		"data not map":    `{"data": [1, 2]}`,
		"row not array":   `{"data": {"509": {"2020-01-21 17:00:00": {"x": 1}}}}`,
		"row too short":   `{"data": {"509": {"2020-01-21 17:00:00": ["x", 1]}}}`,
		"bad index":       `{"data": {"509": {"2020-01-21 17:00:00": ["x", "one", 0]}}}`,
		"tuple too short": `{"data": {"509": {"2020-01-21 17:00:00": ["x", 1, 0, [1]]}}}`,
		"tuple not nums":  `{"data": {"509": {"2020-01-21 17:00:00": ["x", 1, 0, ["PM10", 42]]}}}`,
	} {
		_, err := adapter.Samples([]byte(body), "509")
		assert.ErrorIs(t, err, uba.ErrDecode, name)
	}
}

const measuresBody = `{
  "request": {"station": "509", "component": "2"},
  "time_scope": ["2020-01-21 17:00:00", "2020-01-21 18:00:00", "2020-01-21 19:00:00"],
  "data": [[[0.5], [], [1.2]]]
}`

func TestMeasuresAdapter(t *testing.T) {
	adapter := uba.NewMeasuresAdapter(2, "CO")

	samples, err := adapter.Samples([]byte(measuresBody), "509")
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, "2020-01-21 17:00:00", samples[0].Key)
	assert.False(t, samples[0].HasIndex)
	require.Len(t, samples[0].Measurements, 1)
	// CO values at or below 100 arrive in mg/m3 and are scaled up.
	assert.Equal(t, uba.Measurement{Code: 2, Value: 500}, samples[0].Measurements[0])

	assert.Empty(t, samples[1].Measurements)

	require.Len(t, samples[2].Measurements, 1)
	assert.Equal(t, uba.Measurement{Code: 2, Value: 1200}, samples[2].Measurements[0])
}

func TestMeasuresAdapter_NonPositive(t *testing.T) {
	adapter := uba.NewMeasuresAdapter(5, "NO2")
	body := `{"time_scope": ["2020-01-21 17:00:00", "2020-01-21 18:00:00"], "data": [[[-999], [0]]]}`

	samples, err := adapter.Samples([]byte(body), "509")
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Empty(t, samples[0].Measurements)
	assert.Empty(t, samples[1].Measurements)
}

func TestMeasuresAdapter_Decode(t *testing.T) {
	adapter := uba.NewMeasuresAdapter(5, "NO2")

	for name, body := range map[string]string{
		"no time scope":   `{"data": [[[1.0]]]}`,
		"length mismatch": `{"time_scope": ["2020-01-21 17:00:00", "2020-01-21 18:00:00"], "data": [[[1.0]]]}`,
		"scope not array": `{"time_scope": 7, "data": [[[1.0]]]}`,
	} {
		_, err := adapter.Samples([]byte(body), "509")
		assert.ErrorIs(t, err, uba.ErrDecode, name)
	}

	_, err := adapter.Samples([]byte("not json"), "509")
	assert.ErrorIs(t, err, uba.ErrMalformedPayload)
}

func TestMeasuresAdapter_EmptySeries(t *testing.T) {
	adapter := uba.NewMeasuresAdapter(5, "NO2")

	samples, err := adapter.Samples([]byte(`{"time_scope": [], "data": []}`), "509")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, 50000.0, uba.NormalizeValue("CO", 50))
	assert.Equal(t, 500.0, uba.NormalizeValue("CO", 500))
	assert.Equal(t, 50.0, uba.NormalizeValue("NO2", 50))

	// Boundary: exactly 100 still counts as mg/m3.
	assert.Equal(t, 100000.0, uba.NormalizeValue("CO", 100))
	assert.Equal(t, 100.1, uba.NormalizeValue("CO", 100.1))
}
