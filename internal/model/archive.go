package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedArchive = errors.New("malformed archive response")
	ErrArchiveRejected  = errors.New("archive rejected request")
)

// ArchiveQuery is the parameter set of one archive request.
type ArchiveQuery struct {
	Latitude  float64
	Longitude float64
	StartDate Date
	EndDate   Date
	Variables []DailyVariable
	Timezone  string
}

// ArchiveResponse is a decoded archive payload with its daily arrays keyed
// by the requested variables.
type ArchiveResponse struct {
	Latitude  float64
	Longitude float64
	Timezone  string
	Time      []Date
	Daily     map[DailyVariable][]Measurement
	Cached    bool
}

// Values returns the array for v; nil when v was not requested.
func (r *ArchiveResponse) Values(v DailyVariable) []Measurement {
	return r.Daily[v]
}

type archivePayload struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Timezone  string                     `json:"timezone"`
	Error     bool                       `json:"error"`
	Reason    string                     `json:"reason"`
	Daily     map[string]json.RawMessage `json:"daily"`
}

// DecodeArchiveResponse parses an archive body and checks that every
// variable in vars is present as a numeric array. Entries may be null.
func DecodeArchiveResponse(data []byte, vars []DailyVariable) (*ArchiveResponse, error) {
	var payload archivePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}
	if payload.Error {
		return nil, fmt.Errorf("%w: %s", ErrArchiveRejected, payload.Reason)
	}
	if payload.Daily == nil {
		return nil, fmt.Errorf("%w: no daily block", ErrMalformedArchive)
	}

	resp := &ArchiveResponse{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Daily:     make(map[DailyVariable][]Measurement, len(vars)),
	}

	if rawTime, ok := payload.Daily["time"]; ok {
		if err := json.Unmarshal(rawTime, &resp.Time); err != nil {
			return nil, fmt.Errorf("%w: time index: %v", ErrMalformedArchive, err)
		}
	}

	var missing []string
	for _, v := range vars {
		raw, ok := payload.Daily[string(v)]
		if !ok {
			missing = append(missing, string(v))
			continue
		}
		var values []Measurement
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("%w: variable %s: %v", ErrMalformedArchive, v, err)
		}
		resp.Daily[v] = values
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing daily variables %s", ErrMalformedArchive, strings.Join(missing, ","))
	}

	return resp, nil
}
