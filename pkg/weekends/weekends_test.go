package weekends

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "year": 2025,
  "months": [
    {"month": 1, "days": "1,2,3,4,5,6,7,8,11,12"},
    {"month": 3, "days": "1,2,7*,8,9"},
    {"month": 11, "days": "1,2,3+,4"}
  ],
  "transitions": [{"from": "01.04", "to": "05.02"}],
  "statistic": {"workdays": 247, "holidays": 118}
}`

func TestParse(t *testing.T) {
	days, err := Parse([]byte(sample))
	require.NoError(t, err)

	var keys []string
	for _, d := range days {
		keys = append(keys, d.Key())
	}

	assert.Len(t, days, 18)
	assert.Contains(t, keys, "2025-01-01")
	assert.Contains(t, keys, "2025-11-03")
	assert.NotContains(t, keys, "2025-03-07")
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "no year", data: `{"months":[{"month":1,"days":"1"}]}`},
		{name: "bad day", data: `{"year":2025,"months":[{"month":1,"days":"x"}]}`},
		{name: "day out of month", data: `{"year":2025,"months":[{"month":2,"days":"30"}]}`},
		{name: "bad month", data: `{"year":2025,"months":[{"month":13,"days":"1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseWeekendsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	days, err := ParseWeekendsJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 2025, days[0].Year)

	_, err = ParseWeekendsJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
