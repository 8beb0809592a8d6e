package dashboards

import (
	"context"
	"regexp"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// ServersView is the virtualization-hosts dashboard.
type ServersView struct {
	Hosts  []Host  `json:"hosts"`
	Alerts []Alert `json:"alerts"`
}

// Host is one virtualization host with derived CPU/memory metrics.
type Host struct {
	Name       string        `json:"name"`
	Status     status.Status `json:"status"`
	CPU        HostMetric    `json:"cpu"`
	Memory     HostMetric    `json:"memory"`
	VMs        []HostVM      `json:"vms"`
	Datastores []Datastore   `json:"datastores"`
}

// HostMetric is a utilization percentage with its threshold status.
type HostMetric struct {
	Percent *float64      `json:"percent"`
	Status  status.Status `json:"status"`
}

// HostVM is a guest-like sensor on a host device.
type HostVM struct {
	Name   string        `json:"name"`
	Status status.Status `json:"status"`
}

// Datastore is one datastore with free/total capacity in GB.
type Datastore struct {
	Name    string        `json:"name"`
	FreeGB  *float64      `json:"freeGB"`
	TotalGB *float64      `json:"totalGB"`
	Status  status.Status `json:"status"`
}

// metricSource tells the two host-metric branches apart: values read from
// the sensor's channel table, or values recovered from the sensor row itself
// after a failed channel fetch.
type metricSource string

const (
	sourceChannels metricSource = "channels"
	sourceFallback metricSource = "fallback"
)

// hostMetrics carries CPU/memory percentages plus which branch produced them.
type hostMetrics struct {
	Source metricSource
	CPU    *float64
	Memory *float64
}

// memoryMessagePattern recovers an approximate memory percentage from the
// host-performance sensor's free-text message, e.g. "Memory usage 83 %".
var memoryMessagePattern = regexp.MustCompile(`(?i)memor\w*[^\d]*(\d+(?:[.,]\d+)?)\s*%`)

// BuildServers assembles the virtualization dashboard for a tenant.
func (s *Service) BuildServers(ctx context.Context, probe string) (*ServersView, error) {
	cacheKey := "servers:" + probe
	if cached, ok := s.cachedView(cacheKey); ok {
		if view, ok := cached.(*ServersView); ok {
			return view, nil
		}
	}

	sensors, err := s.domainSensors(ctx, probe, classify.Servers)
	if err != nil {
		return nil, err
	}

	devices := groupByDevice(sensors)

	// One batched fan-out for the whole dashboard: every host-performance and
	// datastore sensor across all devices, not one batch per device.
	var channelIDs []int
	for _, devSensors := range devices {
		for _, sensor := range devSensors {
			if isHostPerformanceSensor(sensor) || isDatastoreSensor(sensor) {
				channelIDs = append(channelIDs, sensor.ObjID)
			}
		}
	}
	channelsByID := s.fetchChannelsBatch(ctx, channelIDs)

	view := &ServersView{
		Hosts:  make([]Host, 0, len(devices)),
		Alerts: collectAlerts(sensors),
	}

	for _, name := range sortedDeviceNames(devices) {
		devSensors := devices[name]
		host := Host{
			Name:   name,
			Status: status.Worst(rawCodes(devSensors)),
		}

		for _, sensor := range devSensors {
			switch {
			case isHostPerformanceSensor(sensor):
				m := hostMetricsFor(sensor, channelsByID[sensor.ObjID])
				host.CPU = HostMetric{Percent: m.CPU, Status: cpuStatus(m.CPU)}
				host.Memory = HostMetric{Percent: m.Memory, Status: memoryStatus(m.Memory)}
			case isDatastoreSensor(sensor):
				host.Datastores = append(host.Datastores, buildDatastore(sensor, channelsByID[sensor.ObjID]))
			case isVMLikeSensor(sensor):
				host.VMs = append(host.VMs, HostVM{
					Name:   sensor.Name,
					Status: status.FromCode(sensor.StatusRaw.Int()),
				})
			}
		}

		view.Hosts = append(view.Hosts, host)
	}

	s.storeView(cacheKey, view)
	return view, nil
}

// hostMetricsFor reads CPU/memory from the sensor's channels when the fetch
// succeeded, otherwise falls back to what the sensor row itself carries.
func hostMetricsFor(sensor prtg.Sensor, channels []prtg.Channel) hostMetrics {
	if len(channels) > 0 {
		m := hostMetrics{Source: sourceChannels}
		if ch, ok := findChannel(channels, "cpu"); ok && ch.LastValueRaw.Valid {
			v := round1(ch.LastValueRaw.Value)
			m.CPU = &v
		}
		if ch, ok := findChannel(channels, "memory"); ok && ch.LastValueRaw.Valid {
			v := round1(ch.LastValueRaw.Value)
			m.Memory = &v
		}
		return m
	}

	// Fallback branch: memory from the message text, CPU from the sensor's
	// own formatted last value when positive.
	m := hostMetrics{Source: sourceFallback}
	if match := memoryMessagePattern.FindStringSubmatch(sensor.Message); match != nil {
		if v := parsePercent(match[0]); v != nil {
			m.Memory = v
		}
	}
	if v := parseNumber(sensor.LastValue); v != nil && *v > 0 {
		m.CPU = v
	}
	return m
}

func buildDatastore(sensor prtg.Sensor, channels []prtg.Channel) Datastore {
	ds := Datastore{
		Name:   sensor.Name,
		Status: status.FromCode(sensor.StatusRaw.Int()),
	}
	// Raw channel values only: the formatted ones may carry a wrong unit.
	if ch, ok := findChannel(channels, "free bytes"); ok {
		ds.FreeGB = bytesToGB(ch.LastValueRaw)
	}
	if ch, ok := findChannel(channels, "total"); ok {
		ds.TotalGB = bytesToGB(ch.LastValueRaw)
	}
	return ds
}

func cpuStatus(percent *float64) status.Status {
	if percent == nil {
		return status.Unknown
	}
	switch {
	case *percent > 90:
		return status.Error
	case *percent > 75:
		return status.Warning
	default:
		return status.OK
	}
}

func memoryStatus(percent *float64) status.Status {
	if percent == nil {
		return status.Unknown
	}
	switch {
	case *percent > 95:
		return status.Error
	case *percent > 85:
		return status.Warning
	default:
		return status.OK
	}
}

func isHostPerformanceSensor(s prtg.Sensor) bool {
	return containsFold(s.Name, "host performance")
}

func isDatastoreSensor(s prtg.Sensor) bool {
	return containsFold(s.Name, "datastore")
}

// isVMLikeSensor is everything on the device that is not infrastructure
// plumbing: datastores, uptime, snapshots, traffic, switch ports, or the
// host-performance sensor itself.
func isVMLikeSensor(s prtg.Sensor) bool {
	for _, pattern := range []string{"datastore", "uptime", "snapshot", "traffic", "switch"} {
		if containsFold(s.Name, pattern) {
			return false
		}
	}
	return !isHostPerformanceSensor(s)
}
