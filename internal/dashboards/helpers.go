package dashboards

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/soportek/atalaya/internal/status"
	"github.com/soportek/atalaya/pkg/prtg"
)

// channelConcurrency caps one build's channel fan-out so a large tenant does
// not hammer the backend.
const channelConcurrency = 5

// Alert is one row of a dashboard's flat alert list.
type Alert struct {
	Name    string        `json:"name"`
	Message string        `json:"message"`
	Status  status.Status `json:"status"`
}

// collectAlerts extracts every sensor in a warning or down state.
func collectAlerts(sensors []prtg.Sensor) []Alert {
	var alerts []Alert
	for _, s := range sensors {
		if status.IsAlertCode(s.StatusRaw.Int()) {
			alerts = append(alerts, Alert{
				Name:    s.Name,
				Message: stripMarkup(s.Message),
				Status:  status.FromCode(s.StatusRaw.Int()),
			})
		}
	}
	return alerts
}

// groupByDevice buckets sensors by device name.
func groupByDevice(sensors []prtg.Sensor) map[string][]prtg.Sensor {
	devices := make(map[string][]prtg.Sensor)
	for _, s := range sensors {
		devices[s.Device] = append(devices[s.Device], s)
	}
	return devices
}

// sortedDeviceNames gives a deterministic iteration order over a device map.
func sortedDeviceNames(devices map[string][]prtg.Sensor) []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func rawCodes(sensors []prtg.Sensor) []int {
	codes := make([]int, 0, len(sensors))
	for _, s := range sensors {
		codes = append(codes, s.StatusRaw.Int())
	}
	return codes
}

// fetchChannelsBatch fetches channel tables for all sensor ids in one bounded
// concurrent batch. A failed fetch leaves its id absent from the result map;
// the batch itself never fails. Each builder converts absence into its own
// documented fallback.
func (s *Service) fetchChannelsBatch(ctx context.Context, ids []int) map[int][]prtg.Channel {
	results := make(map[int][]prtg.Channel, len(ids))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(channelConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			channels, err := s.gw.Channels(ctx, id)
			if err != nil {
				log.Debug().Int("sensorID", id).Err(err).Msg("Channel fetch failed, builder will fall back")
				return nil
			}
			mu.Lock()
			results[id] = channels
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// findChannel returns the first channel whose name contains sub,
// case-insensitively.
func findChannel(channels []prtg.Channel, sub string) (prtg.Channel, bool) {
	sub = strings.ToLower(sub)
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch.Name), sub) {
			return ch, true
		}
	}
	return prtg.Channel{}, false
}

const bytesPerGB = 1024 * 1024 * 1024

// bytesToGB converts a raw byte count to gigabytes with one-decimal
// rounding. Absent or non-positive values yield nil, never 0.
func bytesToGB(raw prtg.RawFloat) *float64 {
	if !raw.Valid || raw.Value <= 0 {
		return nil
	}
	gb := round1(raw.Value / bytesPerGB)
	return &gb
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// percentPattern accepts both "35 %" and locale values like "12,5%".
var percentPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)

// parsePercent extracts the first percentage from a formatted value.
func parsePercent(s string) *float64 {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseNumber extracts the leading numeric part of a formatted last value
// such as "12 %" or "3,5 ms".
func parseNumber(s string) *float64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// stripMarkup removes HTML tags the backend embeds in sensor messages.
func stripMarkup(s string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(s, " "))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
