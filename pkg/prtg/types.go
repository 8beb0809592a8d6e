package prtg

import (
	"bytes"
	"strconv"
	"strings"
)

// Sensor is one raw sensor row from the backend's tabular API. Field names
// follow the backend's own column names.
type Sensor struct {
	ObjID     int     `json:"objid"`
	Name      string  `json:"sensor"`
	Device    string  `json:"device"`
	Group     string  `json:"group"`
	Probe     string  `json:"probe"`
	StatusRaw RawCode `json:"status_raw"`
	LastValue string  `json:"lastvalue"`
	Message   string  `json:"message_raw"`
	Tags      string  `json:"tags"`
}

// LeafGroup returns the last segment of the sensor's ">"-delimited group
// path, trimmed. Only the leaf carries classification meaning.
func (s Sensor) LeafGroup() string {
	path := s.Group
	if idx := strings.LastIndex(path, ">"); idx >= 0 {
		path = path[idx+1:]
	}
	return strings.TrimSpace(path)
}

// Channel is one sub-metric row of a sensor. LastValueRaw is authoritative
// for unit conversions; the formatted LastValue can carry a wrong unit label.
type Channel struct {
	Name         string   `json:"name"`
	LastValue    string   `json:"lastvalue"`
	LastValueRaw RawFloat `json:"lastvalue_raw"`
}

// SensorDetail is the display-friendly single-sensor lookup result.
type SensorDetail struct {
	Name       string `json:"name"`
	StatusText string `json:"statustext"`
	LastValue  string `json:"lastvalue"`
	Message    string `json:"message"`
}

// RawCode decodes a numeric status code that some backend versions emit as a
// JSON string.
type RawCode int

func (c *RawCode) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*c = 0
		return nil
	}
	*c = RawCode(n)
	return nil
}

// Int returns the code as a plain int.
func (c RawCode) Int() int { return int(c) }

// RawFloat is a float channel value that distinguishes "absent" from zero
// and tolerates the backend emitting numbers as strings.
type RawFloat struct {
	Value float64
	Valid bool
}

func (f *RawFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if s == "" || s == "null" {
		f.Valid = false
		return nil
	}
	// tolerate locale decimal commas in stringified numbers
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.Valid = false
		return nil
	}
	f.Value = v
	f.Valid = true
	return nil
}

func (f RawFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}
