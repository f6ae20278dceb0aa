package model

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// City is one of the configured locations the dashboard compares.
type City struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DisplayName returns Name, or the title-cased Key when no name is configured.
func (c City) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return cases.Title(language.English).String(c.Key)
}
