// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strconv"
)

// Record is one latency sample attributed to a region.
type Record struct {
	Region    string
	LatencyMS float64
	Uptime    float64 // uptime_ms or uptime_pct, whichever the source supplied
}

// Student is one row of the roster. Order is the only identity a student
// has; the same id may appear more than once.
type Student struct {
	StudentID StudentID `json:"studentId"`
	Class     string    `json:"class"`
}

// StudentID renders as a JSON number when the source value is all ASCII
// digits and as the original string otherwise.
type StudentID struct {
	raw     string
	num     int64
	numeric bool
}

// ParseStudentID classifies a raw roster cell.
func ParseStudentID(raw string) StudentID {
	id := StudentID{raw: raw}
	if !isDigits(raw) {
		return id
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Too large for int64; keep the text.
		return id
	}
	id.num = n
	id.numeric = true
	return id
}

// Numeric reports whether the id is an integer.
func (id StudentID) Numeric() bool { return id.numeric }

// Int returns the integer form; valid only when Numeric is true.
func (id StudentID) Int() int64 { return id.num }

// String returns the id as it appeared in the source.
func (id StudentID) String() string { return id.raw }

// MarshalJSON implements json.Marshaler.
func (id StudentID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *StudentID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ParseStudentID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = StudentID{raw: s}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
