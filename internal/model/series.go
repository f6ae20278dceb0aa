package model

// DailyVariable names one archive measurement reported once per day.
type DailyVariable string

const (
	TemperatureMax DailyVariable = "temperature_2m_max"
	TemperatureMin DailyVariable = "temperature_2m_min"
	Precipitation  DailyVariable = "precipitation_sum"
	WindspeedMax   DailyVariable = "windspeed_10m_max"
	HumidityMax    DailyVariable = "relative_humidity_2m_max"
)

// DailyVariables is the request order of the variables every series carries.
var DailyVariables = []DailyVariable{
	TemperatureMax,
	TemperatureMin,
	Precipitation,
	WindspeedMax,
	HumidityMax,
}

// DailyWeatherRecord is one row of a WeatherSeries.
type DailyWeatherRecord struct {
	Date           Date        `json:"date"`
	TemperatureMax Measurement `json:"temperature_max"`
	TemperatureMin Measurement `json:"temperature_min"`
	Precipitation  Measurement `json:"precipitation"`
	WindspeedMax   Measurement `json:"windspeed_max"`
	HumidityMax    Measurement `json:"humidity_max"`
}

// NewEmptyRecord returns a record for date with every variable missing.
func NewEmptyRecord(date Date) DailyWeatherRecord {
	return DailyWeatherRecord{
		Date:           date,
		TemperatureMax: Missing(),
		TemperatureMin: Missing(),
		Precipitation:  Missing(),
		WindspeedMax:   Missing(),
		HumidityMax:    Missing(),
	}
}

func (r *DailyWeatherRecord) field(v DailyVariable) *Measurement {
	switch v {
	case TemperatureMax:
		return &r.TemperatureMax
	case TemperatureMin:
		return &r.TemperatureMin
	case Precipitation:
		return &r.Precipitation
	case WindspeedMax:
		return &r.WindspeedMax
	case HumidityMax:
		return &r.HumidityMax
	}
	return nil
}

// Set stores m under v. Unknown variables are ignored.
func (r *DailyWeatherRecord) Set(v DailyVariable, m Measurement) {
	if f := r.field(v); f != nil {
		*f = m
	}
}

// Get returns the value for v, or Missing for an unknown variable.
func (r DailyWeatherRecord) Get(v DailyVariable) Measurement {
	if f := r.field(v); f != nil {
		return *f
	}
	return Missing()
}

func (r DailyWeatherRecord) HasMissing() bool {
	for _, v := range DailyVariables {
		if r.Get(v).IsMissing() {
			return true
		}
	}
	return false
}

// WeatherSeries is the daily table for one city over an inclusive date range.
type WeatherSeries struct {
	City       string               `json:"city,omitempty"`
	Latitude   float64              `json:"latitude"`
	Longitude  float64              `json:"longitude"`
	Timezone   string               `json:"timezone"`
	StartDate  Date                 `json:"start_date"`
	EndDate    Date                 `json:"end_date"`
	Records    []DailyWeatherRecord `json:"records"`
	HasMissing bool                 `json:"has_missing"`
	Cached     bool                 `json:"cached"`
}

func (s *WeatherSeries) Len() int {
	return len(s.Records)
}

func (s *WeatherSeries) Dates() []Date {
	dates := make([]Date, len(s.Records))
	for i, r := range s.Records {
		dates[i] = r.Date
	}
	return dates
}

// Values returns the column for v in date order.
func (s *WeatherSeries) Values(v DailyVariable) []Measurement {
	values := make([]Measurement, len(s.Records))
	for i, r := range s.Records {
		values[i] = r.Get(v)
	}
	return values
}

// CityAverages holds the per-city mean of every daily variable, missing
// values skipped.
type CityAverages struct {
	City           string      `json:"city"`
	Days           int         `json:"days"`
	MissingDays    int         `json:"missing_days"`
	TemperatureMax Measurement `json:"temperature_max"`
	TemperatureMin Measurement `json:"temperature_min"`
	Precipitation  Measurement `json:"precipitation"`
	WindspeedMax   Measurement `json:"windspeed_max"`
	HumidityMax    Measurement `json:"humidity_max"`
}

// Comparison is the result of fetching every configured city for one range.
type Comparison struct {
	StartDate Date             `json:"start_date"`
	EndDate   Date             `json:"end_date"`
	Series    []*WeatherSeries `json:"series"`
	Averages  []CityAverages   `json:"averages"`
}
