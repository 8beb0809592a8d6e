package dashboards

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

func winSensor(id int, name, lastValue string, code int) prtg.Sensor {
	s := sensor(id, name, "win1", "Root>Windows", "Acme", code)
	s.LastValue = lastValue
	return s
}

func TestBuildWindows_RoleAssignment(t *testing.T) {
	gw := &fakeGateway{
		sensors: []prtg.Sensor{
			winSensor(1, "CPU Load", "12 %", 3),
			winSensor(2, "Memory (WMI)", "35 %", 3),
			winSensor(3, "Disk Free", "40 %", 3),
			winSensor(4, "Uptime", "42 d", 3),
		},
		channels: map[int][]prtg.Channel{
			3: {rawChannel("Total", 64424509440)},
		},
	}
	svc := newTestService(gw)

	view, err := svc.BuildWindows(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, view.Servers, 1)

	srv := view.Servers[0]
	assert.Equal(t, "12 %", srv.CPU.Value)
	assert.Equal(t, "65 %", srv.Memory.Value, "percent-free inverts to percent-used")
	assert.Equal(t, "60.0 GB", srv.Disk.Value)
	assert.Equal(t, "42 d", srv.Uptime.Value)
	assert.Equal(t, status.OK, srv.Status)
}

func TestBuildWindows_MemoryInversion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"35 %", "65 %"},
		{"12,5 %", "87.5 %"},
		{"0 %", "100 %"},
		{"4096 MB", "4096 MB"}, // no % suffix: untouched
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, invertFreePercent(tc.input), "input %q", tc.input)
	}
}

func TestBuildWindows_LastMatchingSensorWins(t *testing.T) {
	gw := &fakeGateway{sensors: []prtg.Sensor{
		winSensor(1, "CPU Load", "10 %", 3),
		winSensor(2, "CPU Load (new)", "55 %", 3),
	}}
	svc := newTestService(gw)

	view, err := svc.BuildWindows(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "55 %", view.Servers[0].CPU.Value)
}

func TestBuildWindows_MissingRolesArePlaceholders(t *testing.T) {
	gw := &fakeGateway{sensors: []prtg.Sensor{
		winSensor(1, "CPU Load", "12 %", 3),
	}}
	svc := newTestService(gw)

	view, err := svc.BuildWindows(context.Background(), "Acme")
	require.NoError(t, err)

	srv := view.Servers[0]
	for _, m := range []WinMetric{srv.Memory, srv.Disk, srv.Uptime} {
		assert.Equal(t, "N/A", m.Value)
		assert.Equal(t, status.Unknown, m.Status)
	}
}

func TestBuildWindows_DiskChannelFailure(t *testing.T) {
	gw := &fakeGateway{
		sensors:     []prtg.Sensor{winSensor(1, "Disk Free", "40 %", 3)},
		channelErrs: map[int]error{1: errors.New("fetch failed")},
	}
	svc := newTestService(gw)

	view, err := svc.BuildWindows(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "N/A", view.Servers[0].Disk.Value)
	assert.Equal(t, status.OK, view.Servers[0].Disk.Status, "sensor status survives even without channel data")
}

func TestBuildWindows_DeviceWorstStatus(t *testing.T) {
	gw := &fakeGateway{sensors: []prtg.Sensor{
		winSensor(1, "CPU Load", "12 %", 3),
		winSensor(2, "Memory (WMI)", "35 %", 4),
	}}
	svc := newTestService(gw)

	view, err := svc.BuildWindows(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, status.Warning, view.Servers[0].Status)
	assert.Len(t, view.Alerts, 1)
}
