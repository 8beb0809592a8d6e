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

func TestBuildServers_ChannelsBranch(t *testing.T) {
	gw := &fakeGateway{
		sensors: []prtg.Sensor{
			sensor(10, "Host Performance", "esx1", "Root>Servers", "Acme", 3),
			sensor(11, "Datastore DS1 Free", "esx1", "Root>Servers", "Acme", 3),
			sensor(12, "VM fileserver", "esx1", "Root>Servers", "Acme", 3),
			sensor(13, "Uptime", "esx1", "Root>Servers", "Acme", 3),
		},
		channels: map[int][]prtg.Channel{
			10: {
				rawChannel("CPU Usage", 42.37),
				rawChannel("Memory Usage", 88.2),
			},
			11: {
				rawChannel("Free Bytes", 2147483648),
				rawChannel("Total Bytes", 4294967296),
			},
		},
	}
	svc := newTestService(gw)

	view, err := svc.BuildServers(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, view.Hosts, 1)

	host := view.Hosts[0]
	assert.Equal(t, "esx1", host.Name)
	assert.Equal(t, status.OK, host.Status)

	require.NotNil(t, host.CPU.Percent)
	assert.Equal(t, 42.4, *host.CPU.Percent)
	assert.Equal(t, status.OK, host.CPU.Status)

	require.NotNil(t, host.Memory.Percent)
	assert.Equal(t, 88.2, *host.Memory.Percent)
	assert.Equal(t, status.Warning, host.Memory.Status, "88.2% memory is above the 85 warning threshold")

	require.Len(t, host.Datastores, 1)
	require.NotNil(t, host.Datastores[0].FreeGB)
	assert.Equal(t, 2.0, *host.Datastores[0].FreeGB)
	require.NotNil(t, host.Datastores[0].TotalGB)
	assert.Equal(t, 4.0, *host.Datastores[0].TotalGB)

	// VM-like: the VM sensor yes, uptime no
	require.Len(t, host.VMs, 1)
	assert.Equal(t, "VM fileserver", host.VMs[0].Name)
}

func TestBuildServers_FallbackBranch(t *testing.T) {
	perf := sensor(10, "Host Performance", "esx1", "Root>Servers", "Acme", 3)
	perf.Message = "Memory usage is 83 % of capacity"
	perf.LastValue = "27 %"

	gw := &fakeGateway{
		sensors:     []prtg.Sensor{perf},
		channelErrs: map[int]error{10: errors.New("fetch failed")},
	}
	svc := newTestService(gw)

	view, err := svc.BuildServers(context.Background(), "Acme")
	require.NoError(t, err, "a channel failure inside the fan-out must never fail the build")
	require.Len(t, view.Hosts, 1)

	host := view.Hosts[0]
	require.NotNil(t, host.Memory.Percent)
	assert.Equal(t, 83.0, *host.Memory.Percent)
	require.NotNil(t, host.CPU.Percent)
	assert.Equal(t, 27.0, *host.CPU.Percent)
}

func TestBuildServers_FallbackWithoutRecoverableData(t *testing.T) {
	perf := sensor(10, "Host Performance", "esx1", "Root>Servers", "Acme", 3)
	perf.LastValue = "0 %"

	gw := &fakeGateway{
		sensors:     []prtg.Sensor{perf},
		channelErrs: map[int]error{10: errors.New("fetch failed")},
	}
	svc := newTestService(gw)

	view, err := svc.BuildServers(context.Background(), "Acme")
	require.NoError(t, err)
	host := view.Hosts[0]

	assert.Nil(t, host.CPU.Percent, "non-positive last value cannot stand in for CPU")
	assert.Equal(t, status.Unknown, host.CPU.Status)
	assert.Nil(t, host.Memory.Percent)
	assert.Equal(t, status.Unknown, host.Memory.Status)
}

func TestCPUAndMemoryThresholds(t *testing.T) {
	assert.Equal(t, status.OK, cpuStatus(f(75)))
	assert.Equal(t, status.Warning, cpuStatus(f(75.1)))
	assert.Equal(t, status.Warning, cpuStatus(f(90)))
	assert.Equal(t, status.Error, cpuStatus(f(90.1)))
	assert.Equal(t, status.Unknown, cpuStatus(nil))

	assert.Equal(t, status.OK, memoryStatus(f(85)))
	assert.Equal(t, status.Warning, memoryStatus(f(85.1)))
	assert.Equal(t, status.Warning, memoryStatus(f(95)))
	assert.Equal(t, status.Error, memoryStatus(f(95.1)))
	assert.Equal(t, status.Unknown, memoryStatus(nil))
}

func TestBuildServers_DeviceWorstStatus(t *testing.T) {
	gw := &fakeGateway{
		sensors: []prtg.Sensor{
			sensor(10, "Host Performance", "esx1", "Root>Servers", "Acme", 3),
			sensor(11, "Datastore DS1", "esx1", "Root>Servers", "Acme", 4),
		},
	}
	svc := newTestService(gw)

	view, err := svc.BuildServers(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, status.Warning, view.Hosts[0].Status)
	require.Len(t, view.Alerts, 1)
	assert.Equal(t, "Datastore DS1", view.Alerts[0].Name)
}

func TestBuildServers_SingleFanOutPerBuild(t *testing.T) {
	gw := &fakeGateway{
		sensors: []prtg.Sensor{
			sensor(10, "Host Performance", "esx1", "Root>Servers", "Acme", 3),
			sensor(11, "Datastore DS1", "esx1", "Root>Servers", "Acme", 3),
			sensor(20, "Host Performance", "esx2", "Root>Servers", "Acme", 3),
		},
		channels: map[int][]prtg.Channel{10: {}, 11: {}, 20: {}},
	}
	svc := newTestService(gw)

	_, err := svc.BuildServers(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 3, gw.channelCalls, "exactly one channel fetch per relevant sensor")
}

func TestIsVMLikeSensor(t *testing.T) {
	for _, name := range []string{"VM fileserver", "app01", "SQL Server"} {
		assert.True(t, isVMLikeSensor(prtg.Sensor{Name: name}), name)
	}
	for _, name := range []string{"Datastore DS1", "Uptime", "Snapshot age", "Traffic eth0", "Switch port 3", "Host Performance"} {
		assert.False(t, isVMLikeSensor(prtg.Sensor{Name: name}), name)
	}
}
