package weather

import (
	"context"
)

// ForecastResponse is the raw upstream payload. Series are aligned by day
// index; index 0 is today. Elements may be null upstream and decode to nil.
type ForecastResponse struct {
	Current *CurrentWeather `json:"current_weather"`
	Daily   *DailySeries    `json:"daily"`
}

// CurrentWeather is the optional instantaneous sub-record.
type CurrentWeather struct {
	Temperature *float64 `json:"temperature"`
	WeatherCode *int     `json:"weathercode"`
}

// DailySeries holds the parallel per-day series.
type DailySeries struct {
	Time                         []*string  `json:"time"`
	TemperatureMax               []*float64 `json:"temperature_2m_max"`
	TemperatureMin               []*float64 `json:"temperature_2m_min"`
	PrecipitationSum             []*float64 `json:"precipitation_sum"`
	WeatherCode                  []*int     `json:"weathercode"`
	Sunrise                      []*string  `json:"sunrise"`
	Sunset                       []*string  `json:"sunset"`
	PrecipitationProbabilityMean []*int     `json:"precipitation_probability_mean"`
	PrecipitationProbabilityMax  []*int     `json:"precipitation_probability_max"`
}

// Fetcher abstracts the upstream forecast source (e.g. Open-Meteo).
type Fetcher interface {
	Name() string
	FetchForecast(ctx context.Context, loc Location, days int) (*ForecastResponse, error)
}

// Store is the single-slot cache contract.
type Store interface {
	Get() (Snapshot, bool)
	Set(snapshot Snapshot)
}

// Publisher fans a freshly stored snapshot out to live subscribers and
// reports how many received it.
type Publisher interface {
	Push(snapshot Snapshot) int
}
