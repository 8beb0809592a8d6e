package dashboards

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// WindowsView is the Windows-servers dashboard.
type WindowsView struct {
	Servers []WinServer `json:"servers"`
	Alerts  []Alert     `json:"alerts"`
}

// WinServer is one Windows host with its four role metrics. Roles without a
// matching sensor render as a placeholder rather than being omitted.
type WinServer struct {
	Name   string        `json:"name"`
	Status status.Status `json:"status"`
	CPU    WinMetric     `json:"cpu"`
	Memory WinMetric     `json:"memory"`
	Disk   WinMetric     `json:"disk"`
	Uptime WinMetric     `json:"uptime"`
}

// WinMetric is one role reading.
type WinMetric struct {
	Value  string        `json:"value"`
	Status status.Status `json:"status"`
}

const placeholderValue = "N/A"

// BuildWindows assembles the Windows dashboard for a tenant.
func (s *Service) BuildWindows(ctx context.Context, probe string) (*WindowsView, error) {
	cacheKey := "windows:" + probe
	if cached, ok := s.cachedView(cacheKey); ok {
		if view, ok := cached.(*WindowsView); ok {
			return view, nil
		}
	}

	sensors, err := s.domainSensors(ctx, probe, classify.Windows)
	if err != nil {
		return nil, err
	}

	devices := groupByDevice(sensors)

	// Disk free-GB comes from each disk sensor's channel table; one batch
	// for the whole dashboard.
	var channelIDs []int
	for _, devSensors := range devices {
		if disk := roleSensor(devSensors, diskPatterns); disk != nil {
			channelIDs = append(channelIDs, disk.ObjID)
		}
	}
	channelsByID := s.fetchChannelsBatch(ctx, channelIDs)

	view := &WindowsView{
		Servers: make([]WinServer, 0, len(devices)),
		Alerts:  collectAlerts(sensors),
	}

	for _, name := range sortedDeviceNames(devices) {
		devSensors := devices[name]
		server := WinServer{
			Name:   name,
			Status: status.Worst(rawCodes(devSensors)),
			CPU:    metricFrom(roleSensor(devSensors, cpuPatterns), identityValue),
			Memory: metricFrom(roleSensor(devSensors, memoryPatterns), invertFreePercent),
			Uptime: metricFrom(roleSensor(devSensors, uptimePatterns), identityValue),
		}

		if disk := roleSensor(devSensors, diskPatterns); disk != nil {
			server.Disk = diskMetric(*disk, channelsByID[disk.ObjID])
		} else {
			server.Disk = WinMetric{Value: placeholderValue, Status: status.Unknown}
		}

		view.Servers = append(view.Servers, server)
	}

	s.storeView(cacheKey, view)
	return view, nil
}

var (
	cpuPatterns    = []string{"cpu"}
	memoryPatterns = []string{"memory", "memoria"}
	diskPatterns   = []string{"disk", "disco"}
	uptimePatterns = []string{"uptime"}
)

// roleSensor picks the sensor for a role by name substring. When several
// sensors match, the last one scanned wins; duplicated role sensors are an
// operator misconfiguration and this mirrors the long-standing behavior.
func roleSensor(sensors []prtg.Sensor, patterns []string) *prtg.Sensor {
	var picked *prtg.Sensor
	for i := range sensors {
		for _, p := range patterns {
			if containsFold(sensors[i].Name, p) {
				picked = &sensors[i]
				break
			}
		}
	}
	return picked
}

func metricFrom(sensor *prtg.Sensor, transform func(string) string) WinMetric {
	if sensor == nil {
		return WinMetric{Value: placeholderValue, Status: status.Unknown}
	}
	return WinMetric{
		Value:  transform(sensor.LastValue),
		Status: status.FromCode(sensor.StatusRaw.Int()),
	}
}

func identityValue(v string) string { return v }

// invertFreePercent turns a percent-free reading into percent-used for
// display: "35 %" free becomes "65 %" used, one-decimal rounding. Values
// without a % suffix pass through untouched.
func invertFreePercent(v string) string {
	if !strings.Contains(v, "%") {
		return v
	}
	free := parsePercent(v)
	if free == nil {
		return v
	}
	used := round1(100 - *free)
	return strconv.FormatFloat(used, 'f', -1, 64) + " %"
}

// diskMetric derives free GB from the "Total" channel, which sums the
// per-volume free-byte channels.
func diskMetric(sensor prtg.Sensor, channels []prtg.Channel) WinMetric {
	st := status.FromCode(sensor.StatusRaw.Int())
	if ch, ok := findChannel(channels, "total"); ok {
		if gb := bytesToGB(ch.LastValueRaw); gb != nil {
			return WinMetric{
				Value:  fmt.Sprintf("%.1f GB", *gb),
				Status: st,
			}
		}
	}
	return WinMetric{Value: placeholderValue, Status: st}
}
