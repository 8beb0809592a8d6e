package dashboards

import (
	"context"
	"sort"

	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// BranchesView is the remote-branches dashboard.
type BranchesView struct {
	Branches []Branch `json:"branches"`
	Online   int      `json:"online"`
	Offline  int      `json:"offline"`
	Alerts   []Alert  `json:"alerts"`
}

// Branch is one branch office, represented by its ping sensor.
type Branch struct {
	Name    string        `json:"name"`
	Status  status.Status `json:"status"`
	Latency string        `json:"latency"`
}

// BuildSucursales assembles the branches dashboard for a tenant.
func (s *Service) BuildSucursales(ctx context.Context, probe string) (*BranchesView, error) {
	cacheKey := "sucursales:" + probe
	if cached, ok := s.cachedView(cacheKey); ok {
		if view, ok := cached.(*BranchesView); ok {
			return view, nil
		}
	}

	sensors, err := s.domainSensors(ctx, probe, classify.Sucursales)
	if err != nil {
		return nil, err
	}

	devices := groupByDevice(sensors)

	view := &BranchesView{
		Branches: make([]Branch, 0, len(devices)),
		Alerts:   collectAlerts(sensors),
	}

	for _, name := range sortedDeviceNames(devices) {
		rep := representativeSensor(devices[name])
		st := status.FromCode(rep.StatusRaw.Int())

		branch := Branch{Name: name, Status: st}
		// Only a live reading is worth showing; a latency figure on a down
		// or paused branch would be stale and misleading.
		if st == status.OK || st == status.Warning {
			branch.Latency = rep.LastValue
		}

		switch st {
		case status.OK:
			view.Online++
		case status.Error, status.Unknown:
			view.Offline++
		}

		view.Branches = append(view.Branches, branch)
	}

	// worst first, then stable by name for equal status
	sort.SliceStable(view.Branches, func(i, j int) bool {
		return status.BranchPriority(view.Branches[i].Status) < status.BranchPriority(view.Branches[j].Status)
	})

	s.storeView(cacheKey, view)
	return view, nil
}

// representativeSensor picks the first "ping"-named sensor on the device,
// falling back to the device's first sensor.
func representativeSensor(sensors []prtg.Sensor) prtg.Sensor {
	for _, sensor := range sensors {
		if containsFold(sensor.Name, "ping") {
			return sensor
		}
	}
	return sensors[0]
}
