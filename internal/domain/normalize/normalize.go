// Package normalize turns loosely shaped latency payloads into region-grouped
// records ready for aggregation.
//
// Two shapes are accepted:
//
//	{"regions": {"apac": [{...}, ...], ...}, "threshold_ms": 180}
//	[{"region": "apac", "latency_ms": 120, "uptime_pct": 99}, ...]
//
// An object whose "regions" value is itself a flat list is treated like the
// second shape.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/vantage/internal/domain/model"
)

// Payload keys.
const (
	keyRegions   = "regions"
	keyRegion    = "region"
	keyThreshold = "threshold_ms"
)

// Field aliases in lookup order; the first key present wins.
var (
	latencyKeys = []string{"latency_ms", "latency"}
	uptimeKeys  = []string{"uptime_ms", "uptime_pct"}
)

// Request is a normalized latency payload.
type Request struct {
	Regions     map[string][]model.Record
	ThresholdMS float64
}

// Records returns the total number of records across regions.
func (r Request) Records() int {
	n := 0
	for _, recs := range r.Regions {
		n += len(recs)
	}
	return n
}

// IsEmpty reports whether raw should be treated as an absent body: nothing
// but whitespace, unparseable JSON, null, an empty object or an empty list.
func IsEmpty(raw []byte) bool {
	v, err := decode(raw)
	if err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		return toFloat(t) == 0
	}
	return false
}

// Payload decodes raw and groups its records by region. defaultThreshold
// applies when the payload is a list or when threshold_ms is absent, zero
// or not a number.
func Payload(raw []byte, defaultThreshold float64) (Request, error) {
	v, err := decode(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	return FromValue(v, defaultThreshold)
}

// FromValue normalizes an already decoded JSON value. Numbers must have been
// decoded as json.Number or float64.
func FromValue(v any, defaultThreshold float64) (Request, error) {
	req := Request{ThresholdMS: defaultThreshold}

	switch t := v.(type) {
	case map[string]any:
		regions, ok := t[keyRegions]
		if !ok {
			return Request{}, ErrUnexpectedShape
		}
		if th := toFloat(t[keyThreshold]); th != 0 {
			req.ThresholdMS = th
		}
		switch r := regions.(type) {
		case map[string]any:
			req.Regions = fromMapping(r)
		case []any:
			req.Regions = fromList(r)
		default:
			return Request{}, fmt.Errorf("%w: %q must be an object or a list", ErrUnexpectedShape, keyRegions)
		}
	case []any:
		req.Regions = fromList(t)
	default:
		return Request{}, ErrUnexpectedShape
	}
	return req, nil
}

// fromMapping keeps every region key, including those whose value is not a
// list; such regions end up with no records.
func fromMapping(regions map[string]any) map[string][]model.Record {
	out := make(map[string][]model.Record, len(regions))
	for name, raw := range regions {
		items, _ := raw.([]any)
		recs := make([]model.Record, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			recs = append(recs, toRecord(name, obj))
		}
		out[name] = recs
	}
	return out
}

// fromList groups tagged records; entries without a non-empty string region
// are dropped. Record order within a region follows list order.
func fromList(items []any) map[string][]model.Record {
	out := make(map[string][]model.Record)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj[keyRegion].(string)
		if name == "" {
			continue
		}
		out[name] = append(out[name], toRecord(name, obj))
	}
	return out
}

func toRecord(region string, obj map[string]any) model.Record {
	return model.Record{
		Region:    region,
		LatencyMS: firstPresent(obj, latencyKeys),
		Uptime:    firstPresent(obj, uptimeKeys),
	}
}

// firstPresent coerces the value of the first key that exists in obj. A
// present key with a malformed value yields 0 rather than falling through.
func firstPresent(obj map[string]any, keys []string) float64 {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return toFloat(v)
		}
	}
	return 0
}

func decode(raw []byte) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}
