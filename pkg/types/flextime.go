package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Accepted textual time layouts, tried in order
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseMillis parses epoch milliseconds or a date/time string. Strings
// without a zone are read as UTC.
func ParseMillis(s string) (Millis, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// FlexMillis decodes from either a JSON number of milliseconds or a
// date/time string, and encodes as a number.
type FlexMillis Millis

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexMillis) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		ms, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			fl, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("invalid time %s", data)
			}
			ms = int64(fl)
		}
		*f = FlexMillis(ms)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a number or string")
	}
	ms, err := ParseMillis(s)
	if err != nil {
		return err
	}
	*f = FlexMillis(ms)
	return nil
}
