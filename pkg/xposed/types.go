package xposed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BreachAnalytics is the subset of the breach-analytics response the service
// relies on.
type BreachAnalytics struct {
	ExposedBreaches *ExposedBreaches `json:"ExposedBreaches"`
}

// ExposedBreaches keeps entries undecoded so that one malformed entry does not
// fail the whole response.
type ExposedBreaches struct {
	Details []json.RawMessage `json:"breaches_details"`
}

// BreachEntry is one element of ExposedBreaches.breaches_details. Every field
// is tolerant of the provider's loose typing, so any JSON object decodes.
type BreachEntry struct {
	Breach        FlexString `json:"breach"`
	Domain        FlexString `json:"domain"`
	XposedDate    FlexString `json:"xposed_date"`
	XposedData    FlexString `json:"xposed_data"`
	Details       FlexString `json:"details"`
	XposedRecords FlexInt    `json:"xposed_records"`
}

// DecodeEntry decodes a single breach entry. It fails when raw is not a JSON
// object.
func DecodeEntry(raw json.RawMessage) (BreachEntry, error) {
	var e BreachEntry
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return e, fmt.Errorf("xposed: breach entry is not an object: %.40s", string(trimmed))
	}
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return e, fmt.Errorf("xposed: decode breach entry: %w", err)
	}
	return e, nil
}

// DataClasses splits xposed_data ("Email addresses;Passwords") into labels.
func (e BreachEntry) DataClasses() []string {
	var out []string
	for _, part := range strings.Split(string(e.XposedData), ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// PasswordAnalytics is the anonymous password search response.
type PasswordAnalytics struct {
	SearchPassAnon *struct {
		Anon  string  `json:"anon"`
		Char  string  `json:"char"`
		Count FlexInt `json:"count"`
	} `json:"SearchPassAnon"`
}

// FlexInt accepts a JSON number or a numeric string. Anything else, such as
// null or "N/A", decodes as 0.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// FlexString accepts a JSON string, number or bool. Arrays are joined with ";"
// and other values (null, objects) decode as "".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	*f = FlexString(scalarString(b))
	return nil
}

func scalarString(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return ""
		}
		return v
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return ""
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if v := scalarString(item); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ";")
	case '{', 'n':
		return ""
	default:
		return string(b)
	}
}
