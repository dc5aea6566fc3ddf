package weather

import (
	"fmt"
	"time"
)

// Location is the fixed place the dashboard tracks.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Timezone  string  `json:"timezone" validate:"required"`
}

// Key returns a canonical string key for logging this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.3f,%.3f@%s", l.Latitude, l.Longitude, l.Timezone)
}

// Day is the summary for one forecast day. Any field the upstream response
// did not carry stays absent.
type Day struct {
	Max            Optional[int]     `json:"max"`
	Min            Optional[int]     `json:"min"`
	PrecipSum      Optional[float64] `json:"precipSum"`
	Code           Optional[int]     `json:"code"`
	PrecipProbMean Optional[int]     `json:"precipProbMean"`
	PrecipProbMax  Optional[int]     `json:"precipProbMax"`
	Sunrise        Optional[string]  `json:"sunrise"`
	Sunset         Optional[string]  `json:"sunset"`
}

// Current holds the instantaneous conditions, when the source reports them.
type Current struct {
	Temperature Optional[int] `json:"temperature"`
	Code        Optional[int] `json:"code"`
}

// Snapshot is the published view of the latest successful refresh.
// It holds no pointers, so every copy handed to a reader is independent.
type Snapshot struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Today     Day               `json:"today"`
	Tomorrow  Day               `json:"tomorrow"`
	Current   Optional[Current] `json:"current"`
}
