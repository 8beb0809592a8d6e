package dashboards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

func TestBytesToGB(t *testing.T) {
	gb := bytesToGB(prtg.RawFloat{Value: 2147483648, Valid: true})
	require.NotNil(t, gb)
	assert.Equal(t, 2.0, *gb)

	// one-decimal rounding
	gb = bytesToGB(prtg.RawFloat{Value: 1610612736, Valid: true})
	require.NotNil(t, gb)
	assert.Equal(t, 1.5, *gb)

	assert.Nil(t, bytesToGB(prtg.RawFloat{Value: 0, Valid: true}), "zero must be nil, not 0")
	assert.Nil(t, bytesToGB(prtg.RawFloat{Valid: false}), "missing must be nil")
	assert.Nil(t, bytesToGB(prtg.RawFloat{Value: -5, Valid: true}))
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		input    string
		expected *float64
	}{
		{"35 %", f(35)},
		{"12,5 %", f(12.5)},
		{"99.9%", f(99.9)},
		{"no percent here", nil},
		{"", nil},
	}
	for _, tc := range tests {
		got := parsePercent(tc.input)
		if tc.expected == nil {
			assert.Nil(t, got, "input %q", tc.input)
		} else {
			require.NotNil(t, got, "input %q", tc.input)
			assert.Equal(t, *tc.expected, *got)
		}
	}
}

func TestParseNumber(t *testing.T) {
	v := parseNumber("3,5 ms")
	require.NotNil(t, v)
	assert.Equal(t, 3.5, *v)

	v = parseNumber("12 %")
	require.NotNil(t, v)
	assert.Equal(t, 12.0, *v)

	assert.Nil(t, parseNumber(""))
	assert.Nil(t, parseNumber("down"))
}

func TestCollectAlerts(t *testing.T) {
	sensors := []prtg.Sensor{
		sensor(1, "OK sensor", "d", "g", "p", 3),
		sensor(2, "Warn sensor", "d", "g", "p", 4),
		sensor(3, "Down sensor", "d", "g", "p", 5),
		sensor(4, "Ack down", "d", "g", "p", 13),
		sensor(5, "Partial down", "d", "g", "p", 14),
		sensor(6, "Paused", "d", "g", "p", 7),
	}
	sensors[2].Message = `<div class="status">Connection refused</div>`

	alerts := collectAlerts(sensors)
	require.Len(t, alerts, 4)
	assert.Equal(t, "Warn sensor", alerts[0].Name)
	assert.Equal(t, status.Warning, alerts[0].Status)
	assert.Equal(t, status.Error, alerts[1].Status)
	assert.Equal(t, "Connection refused", alerts[1].Message, "markup must be stripped")
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "OK", stripMarkup("OK"))
	assert.Equal(t, "Low free space", stripMarkup("<b>Low free space</b>"))
}

func f(v float64) *float64 { return &v }
