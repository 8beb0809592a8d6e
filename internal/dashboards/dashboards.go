// Package dashboards turns raw tenant telemetry into the five typed
// dashboard views: virtualization hosts, backup jobs, network gear, Windows
// servers, and remote branches.
package dashboards

import (
	"context"
	"fmt"
	"time"

	"github.com/soportek/atalaya/internal/cache"
	"github.com/soportek/atalaya/internal/classify"
	"github.com/soportek/atalaya/internal/metrics"
	"github.com/soportek/atalaya/pkg/prtg"
)

// Gateway is the slice of the monitoring backend client the builders use.
type Gateway interface {
	SensorsForTenant(ctx context.Context, probe string) ([]prtg.Sensor, error)
	Channels(ctx context.Context, sensorID int) ([]prtg.Channel, error)
	SensorDetail(ctx context.Context, sensorID int) (*prtg.SensorDetail, error)
}

// Service holds the builders' shared collaborators: gateway, result cache,
// and the last-job-run side table for the backups dashboard.
type Service struct {
	gw         Gateway
	store      *cache.Store
	lastJobRun *cache.SideTable
	ttl        time.Duration
}

// New creates a dashboard service. The side table is injected rather than
// package-global so each test can start from a fresh one.
func New(gw Gateway, store *cache.Store, lastJobRun *cache.SideTable) *Service {
	return &Service{
		gw:         gw,
		store:      store,
		lastJobRun: lastJobRun,
		ttl:        cache.DefaultTTL,
	}
}

// Available lists the dashboards that exist for the tenant: every domain
// with at least one classified sensor, always in canonical order.
func (s *Service) Available(ctx context.Context, probe string) ([]classify.Domain, error) {
	sensors, err := s.gw.SensorsForTenant(ctx, probe)
	if err != nil {
		return nil, err
	}

	present := make(map[classify.Domain]bool)
	for _, sensor := range sensors {
		if domain, ok := classify.Classify(sensor.LeafGroup()); ok {
			present[domain] = true
		}
	}

	out := make([]classify.Domain, 0, len(present))
	for _, domain := range classify.CanonicalOrder {
		if present[domain] {
			out = append(out, domain)
		}
	}
	return out, nil
}

// Build dispatches to the builder for the given domain.
func (s *Service) Build(ctx context.Context, domain classify.Domain, probe string) (any, error) {
	var (
		view any
		err  error
	)
	switch domain {
	case classify.Servers:
		view, err = s.BuildServers(ctx, probe)
	case classify.Backups:
		view, err = s.BuildBackups(ctx, probe)
	case classify.Networking:
		view, err = s.BuildNetworking(ctx, probe)
	case classify.Windows:
		view, err = s.BuildWindows(ctx, probe)
	case classify.Sucursales:
		view, err = s.BuildSucursales(ctx, probe)
	default:
		return nil, fmt.Errorf("unknown dashboard domain %q", domain)
	}
	metrics.RecordBuild(string(domain), err)
	return view, err
}

// SensorDetail proxies the best-effort single-sensor lookup for drill-down
// views. A failed lookup is (nil, nil), matching the gateway contract.
func (s *Service) SensorDetail(ctx context.Context, sensorID int) (*prtg.SensorDetail, error) {
	return s.gw.SensorDetail(ctx, sensorID)
}

// domainSensors fetches the tenant's sensors and keeps those classified into
// the given domain. Unclassified sensors are silently excluded everywhere.
func (s *Service) domainSensors(ctx context.Context, probe string, domain classify.Domain) ([]prtg.Sensor, error) {
	sensors, err := s.gw.SensorsForTenant(ctx, probe)
	if err != nil {
		return nil, err
	}

	var matched []prtg.Sensor
	for _, sensor := range sensors {
		if d, ok := classify.Classify(sensor.LeafGroup()); ok && d == domain {
			matched = append(matched, sensor)
		}
	}
	return matched, nil
}

// cachedView returns the cached view for key if fresh, recording the lookup.
func (s *Service) cachedView(key string) (any, bool) {
	if s.store == nil {
		return nil, false
	}
	v, ok := s.store.Get(key, s.ttl)
	metrics.RecordCacheLookup("dashboard", ok)
	return v, ok
}

func (s *Service) storeView(key string, view any) {
	if s.store != nil {
		s.store.Set(key, view)
	}
}
