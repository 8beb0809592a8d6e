// Package prtgtest provides an in-memory gateway fixture for tests that need
// a dashboards.Service without a live monitoring backend.
package prtgtest

import (
	"context"
	"fmt"

	"github.com/soportek/atalaya/internal/errors"
	"github.com/soportek/atalaya/pkg/prtg"
)

// Gateway is a canned-data stand-in for the prtg client.
type Gateway struct {
	sensors     []prtg.Sensor
	listingsErr error
	channels    map[int][]prtg.Channel
	details     map[int]*prtg.SensorDetail
}

// New creates an empty fixture.
func New() *Gateway {
	return &Gateway{
		channels: make(map[int][]prtg.Channel),
		details:  make(map[int]*prtg.SensorDetail),
	}
}

// AddSensor registers one sensor row.
func (g *Gateway) AddSensor(id int, name, device, group, probe string, statusRaw int) {
	g.sensors = append(g.sensors, prtg.Sensor{
		ObjID:     id,
		Name:      name,
		Device:    device,
		Group:     group,
		Probe:     probe,
		StatusRaw: prtg.RawCode(statusRaw),
	})
}

// SetChannels registers the channel table for a sensor id.
func (g *Gateway) SetChannels(id int, channels []prtg.Channel) {
	g.channels[id] = channels
}

// SetDetail registers the detail lookup result for a sensor id.
func (g *Gateway) SetDetail(id int, detail *prtg.SensorDetail) {
	g.details[id] = detail
}

// FailListings makes every SensorsForTenant call return err.
func (g *Gateway) FailListings(err error) {
	g.listingsErr = err
}

func (g *Gateway) SensorsForTenant(_ context.Context, probe string) ([]prtg.Sensor, error) {
	if g.listingsErr != nil {
		return nil, g.listingsErr
	}
	var out []prtg.Sensor
	for _, s := range g.sensors {
		if s.Probe == probe {
			out = append(out, s)
		}
	}
	return out, nil
}

func (g *Gateway) Channels(_ context.Context, sensorID int) ([]prtg.Channel, error) {
	if chs, ok := g.channels[sensorID]; ok {
		return chs, nil
	}
	return nil, fmt.Errorf("no channels for sensor %d", sensorID)
}

func (g *Gateway) SensorDetail(_ context.Context, sensorID int) (*prtg.SensorDetail, error) {
	return g.details[sensorID], nil
}

// TimeoutError builds a typed upstream-timeout error for the given op.
func TimeoutError(op string) error {
	return errors.WrapTimeout(op, "", fmt.Errorf("simulated timeout"))
}

// ConnectionError builds a typed connection error for the given op.
func ConnectionError(op string) error {
	return errors.WrapConnection(op, "", fmt.Errorf("simulated connection failure"))
}
