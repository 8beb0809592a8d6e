package dashboards

import (
	"context"
	"strings"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// NetworkingView is the network-gear dashboard: generic devices, the
// switches leaf group, and the point-to-point antenna leaf group, each built
// with the same grouping, plus one combined alert list.
type NetworkingView struct {
	Devices  []NetDevice `json:"devices"`
	Switches []NetDevice `json:"switches"`
	Antennas []NetDevice `json:"antennas"`
	Alerts   []Alert     `json:"alerts"`
}

// NetDevice is one network device with its sensor readings.
type NetDevice struct {
	Name    string        `json:"name"`
	Status  status.Status `json:"status"`
	Sensors []NetSensor   `json:"sensors"`
}

// NetSensor is one reading on a network device.
type NetSensor struct {
	Name   string        `json:"name"`
	Value  string        `json:"value"`
	Status status.Status `json:"status"`
}

const (
	switchesLeaf = "switches"
	antennasLeaf = "antenas ptp"
)

// BuildNetworking assembles the networking dashboard for a tenant.
func (s *Service) BuildNetworking(ctx context.Context, probe string) (*NetworkingView, error) {
	cacheKey := "networking:" + probe
	if cached, ok := s.cachedView(cacheKey); ok {
		if view, ok := cached.(*NetworkingView); ok {
			return view, nil
		}
	}

	sensors, err := s.domainSensors(ctx, probe, classify.Networking)
	if err != nil {
		return nil, err
	}

	var generic, switches, antennas []prtg.Sensor
	for _, sensor := range sensors {
		switch strings.ToLower(sensor.LeafGroup()) {
		case switchesLeaf:
			switches = append(switches, sensor)
		case antennasLeaf:
			antennas = append(antennas, sensor)
		default:
			generic = append(generic, sensor)
		}
	}

	view := &NetworkingView{
		Devices:  buildNetDevices(generic),
		Switches: buildNetDevices(switches),
		Antennas: buildNetDevices(antennas),
		Alerts:   collectAlerts(sensors),
	}

	s.storeView(cacheKey, view)
	return view, nil
}

// buildNetDevices groups sensors by device. Device status escalates to error
// on any sensor in error, else warning on any warning, else stays ok.
func buildNetDevices(sensors []prtg.Sensor) []NetDevice {
	devices := groupByDevice(sensors)
	out := make([]NetDevice, 0, len(devices))

	for _, name := range sortedDeviceNames(devices) {
		devSensors := devices[name]
		device := NetDevice{
			Name:    name,
			Status:  status.OK,
			Sensors: make([]NetSensor, 0, len(devSensors)),
		}

		for _, sensor := range devSensors {
			st := status.FromCode(sensor.StatusRaw.Int())
			device.Sensors = append(device.Sensors, NetSensor{
				Name:   sensor.Name,
				Value:  sensor.LastValue,
				Status: st,
			})
			switch st {
			case status.Error:
				device.Status = status.Error
			case status.Warning:
				if device.Status != status.Error {
					device.Status = status.Warning
				}
			}
		}

		out = append(out, device)
	}
	return out
}
