package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Measurement is a single daily reading. NaN marks a missing value so that
// an absent observation is never confused with a true zero.
type Measurement float64

var nullJSON = []byte("null")

// Missing returns the missing-value sentinel.
func Missing() Measurement {
	return Measurement(math.NaN())
}

func (m Measurement) IsMissing() bool {
	return math.IsNaN(float64(m))
}

func (m Measurement) Float64() float64 {
	return float64(m)
}

// MarshalJSON encodes missing values as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nullJSON, nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// UnmarshalJSON decodes null as the missing sentinel.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), nullJSON) {
		*m = Missing()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Measurement(f)
	return nil
}

// PadMissing right-pads values with the missing sentinel up to length n.
// Existing values keep their position; a slice already n long or longer
// is returned unchanged.
func PadMissing(values []Measurement, n int) []Measurement {
	if len(values) >= n {
		return values
	}
	padded := make([]Measurement, n)
	copy(padded, values)
	for i := len(values); i < n; i++ {
		padded[i] = Missing()
	}
	return padded
}

// Mean averages the present values, skipping missing ones. All-missing or
// empty input yields Missing.
func Mean(values []Measurement) Measurement {
	var sum float64
	var n int
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		sum += float64(v)
		n++
	}
	if n == 0 {
		return Missing()
	}
	return Measurement(sum / float64(n))
}
