package weather

import (
	"errors"
	"math"
	"time"
)

// ErrIncompleteResponse is returned when the upstream payload lacks the daily
// series altogether.
var ErrIncompleteResponse = errors.New("forecast response is missing daily data")

// BuildSnapshot maps a raw response onto a Snapshot. Day fields are read
// positionally: index 0 is today, index 1 is tomorrow.
func BuildSnapshot(resp *ForecastResponse, now time.Time) (Snapshot, error) {
	if resp == nil || resp.Daily == nil {
		return Snapshot{}, ErrIncompleteResponse
	}

	snap := Snapshot{
		UpdatedAt: now,
		Today:     dayAt(resp.Daily, 0),
		Tomorrow:  dayAt(resp.Daily, 1),
	}

	if c := resp.Current; c != nil {
		snap.Current = Some(Current{
			Temperature: roundAt([]*float64{c.Temperature}, 0),
			Code:        FromPtr(c.WeatherCode),
		})
	}

	return snap, nil
}

func dayAt(d *DailySeries, i int) Day {
	return Day{
		Max:            roundAt(d.TemperatureMax, i),
		Min:            roundAt(d.TemperatureMin, i),
		PrecipSum:      at(d.PrecipitationSum, i),
		Code:           at(d.WeatherCode, i),
		PrecipProbMean: at(d.PrecipitationProbabilityMean, i),
		PrecipProbMax:  at(d.PrecipitationProbabilityMax, i),
		Sunrise:        at(d.Sunrise, i),
		Sunset:         at(d.Sunset, i),
	}
}

func at[T any](series []*T, i int) Optional[T] {
	if i < 0 || i >= len(series) {
		return None[T]()
	}
	return FromPtr(series[i])
}

func roundAt(series []*float64, i int) Optional[int] {
	v, ok := at(series, i).Get()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return None[int]()
	}
	return Some(int(math.Round(v)))
}
