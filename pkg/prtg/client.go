// Package prtg is a client for a PRTG-style monitoring backend. It exposes
// the three calls the dashboard pipeline needs: whole-tenant sensor listings,
// per-sensor channel tables, and best-effort single-sensor detail.
package prtg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	atalayaerrors "github.com/soportek/atalaya/internal/errors"
	"github.com/soportek/atalaya/pkg/tlsutil"
)

const (
	// DefaultTimeout bounds every single outbound call. There is no overall
	// deadline composing multiple calls.
	DefaultTimeout = 15 * time.Second

	sensorColumns  = "objid,sensor,device,group,probe,status,message,lastvalue,tags"
	channelColumns = "name,lastvalue"
	rowCap         = "2500"

	subgroupConcurrency = 3
)

// SensorCache is the slice of the shared result cache the client needs for
// whole-tenant sensor listings.
type SensorCache interface {
	Get(key string, ttl time.Duration) (any, bool)
	Set(key string, value any)
}

// ClientConfig holds configuration for the monitoring backend client.
type ClientConfig struct {
	BaseURL     string
	Token       string
	VerifySSL   bool
	Fingerprint string
	Subgroups   []string // ordered, operator-configured top-level groups
	Timeout     time.Duration
	Cache       SensorCache
	CacheTTL    time.Duration

	// OnRequest, if set, observes every outbound call. Used for metrics.
	OnRequest func(endpoint string, err error, elapsed time.Duration)
}

// Client talks to the monitoring backend's tabular and detail endpoints.
type Client struct {
	baseURL    string
	token      string
	subgroups  []string
	timeout    time.Duration
	httpClient *http.Client
	cache      SensorCache
	cacheTTL   time.Duration
	onRequest  func(endpoint string, err error, elapsed time.Duration)
}

// NewClient creates a monitoring backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	host := strings.TrimSpace(cfg.BaseURL)
	if host == "" {
		return nil, fmt.Errorf("monitoring backend base URL is required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
		log.Debug().Str("host", host).Msg("No protocol specified in backend URL, defaulting to HTTPS")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("monitoring backend API token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(host, "/"),
		token:      cfg.Token,
		subgroups:  cfg.Subgroups,
		timeout:    timeout,
		httpClient: tlsutil.NewHTTPClient(cfg.VerifySSL, cfg.Fingerprint, timeout),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		onRequest:  cfg.OnRequest,
	}, nil
}

// SensorsForTenant returns every sensor belonging to the tenant probe across
// all configured subgroups. Subgroup queries run concurrently; a failed
// subgroup contributes nothing rather than failing the whole listing. The
// combined, filtered result is cached per tenant.
func (c *Client) SensorsForTenant(ctx context.Context, probe string) ([]Sensor, error) {
	cacheKey := "sensors:" + probe
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey, c.cacheTTL); ok {
			if sensors, ok := cached.([]Sensor); ok {
				return sensors, nil
			}
		}
	}

	type subgroupResult struct {
		subgroup string
		sensors  []Sensor
		err      error
	}

	resultCh := make(chan subgroupResult, len(c.subgroups))
	sem := make(chan struct{}, subgroupConcurrency)
	var wg sync.WaitGroup

	for _, sg := range c.subgroups {
		wg.Add(1)
		go func(subgroup string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				resultCh <- subgroupResult{subgroup: subgroup, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			sensors, err := c.fetchSubgroupSensors(ctx, subgroup)
			resultCh <- subgroupResult{subgroup: subgroup, sensors: sensors, err: err}
		}(sg)
	}

	wg.Wait()
	close(resultCh)

	var all []Sensor
	failed := 0
	for res := range resultCh {
		if res.err != nil {
			// tenant-level partial failure is tolerated: log and move on
			failed++
			log.Warn().
				Str("subgroup", res.subgroup).
				Err(res.err).
				Msg("Subgroup sensor query failed, treating as empty")
			continue
		}
		all = append(all, res.sensors...)
	}

	if failed == len(c.subgroups) && len(c.subgroups) > 0 {
		return nil, atalayaerrors.WrapConnection("sensors", probe,
			fmt.Errorf("all %d subgroup queries failed", failed))
	}

	filtered := make([]Sensor, 0, len(all))
	for _, s := range all {
		if s.Probe == probe {
			filtered = append(filtered, s)
		}
	}

	log.Debug().
		Str("probe", probe).
		Int("total", len(all)).
		Int("matched", len(filtered)).
		Int("failedSubgroups", failed).
		Msg("Fetched tenant sensors")

	if c.cache != nil {
		c.cache.Set(cacheKey, filtered)
	}
	return filtered, nil
}

func (c *Client) fetchSubgroupSensors(ctx context.Context, subgroup string) ([]Sensor, error) {
	params := url.Values{
		"content":      {"sensors"},
		"columns":      {sensorColumns},
		"filter_group": {subgroup},
		"count":        {rowCap},
	}

	var result struct {
		Sensors []Sensor `json:"sensors"`
	}
	if err := c.getJSON(ctx, "sensors", "/api/table.json", params, &result); err != nil {
		return nil, err
	}
	return result.Sensors, nil
}

// Channels returns the channel table of one sensor. Results are not cached
// here; callers decide caching granularity.
func (c *Client) Channels(ctx context.Context, sensorID int) ([]Channel, error) {
	params := url.Values{
		"content": {"channels"},
		"columns": {channelColumns},
		"id":      {strconv.Itoa(sensorID)},
		"count":   {rowCap},
	}

	var result struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.getJSON(ctx, "channels", "/api/table.json", params, &result); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// SensorDetail is a best-effort single-sensor lookup: any failure yields
// (nil, nil) rather than an error.
func (c *Client) SensorDetail(ctx context.Context, sensorID int) (*SensorDetail, error) {
	params := url.Values{
		"id": {strconv.Itoa(sensorID)},
	}

	var result struct {
		SensorData SensorDetail `json:"sensordata"`
	}
	if err := c.getJSON(ctx, "sensordetail", "/api/getsensordetails.json", params, &result); err != nil {
		log.Debug().Int("sensorID", sensorID).Err(err).Msg("Sensor detail lookup failed")
		return nil, nil
	}
	return &result.SensorData, nil
}

// getJSON issues one authenticated GET with the per-call timeout and decodes
// the JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("apitoken", c.token)
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return atalayaerrors.WrapConnection(op, "", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.onRequest != nil {
		defer func() { c.onRequest(op, err, time.Since(start)) }()
	}
	if err != nil {
		// A timeout is a distinct condition from a dead backend.
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			err = atalayaerrors.WrapTimeout(op, "", err)
			return err
		}
		err = atalayaerrors.WrapConnection(op, "", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := fmt.Errorf("API error %d from %s", resp.StatusCode, maskToken(fullURL))
		err = atalayaerrors.WrapAPI(op, "", apiErr, resp.StatusCode)
		return err
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		err = atalayaerrors.WrapDecode(op, "", decodeErr)
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// maskToken redacts the auth token from a URL destined for logs or error
// messages. The token must never appear verbatim anywhere.
func maskToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("apitoken") {
		q.Set("apitoken", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
