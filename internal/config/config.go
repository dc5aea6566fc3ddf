package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/weather"
)

// Defaults for the tracked location.
const (
	defaultLatitude  = 51.938
	defaultLongitude = 8.875
	defaultTimezone  = "Europe/Berlin"
)

type AppConfig struct {
	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `validate:"oneof=text json"`

	Location     weather.Location
	ForecastDays int `validate:"gte=2,lte=16"`

	// RefreshInterval controls how often the snapshot is refreshed.
	RefreshInterval     time.Duration `validate:"gt=0"`
	RefreshInitialDelay time.Duration `validate:"gte=0"`
	RefreshTimeout      time.Duration `validate:"gt=0"`

	HTTPTimeout      time.Duration `validate:"gt=0"`
	OpenMeteoBaseURL string        `validate:"required,url"`

	// Live delivery.
	StreamWriteTimeout  time.Duration `validate:"gt=0"`
	StreamKeepAlive     time.Duration `validate:"gt=0"`
	RelayWriteTimeout   time.Duration `validate:"gt=0"`
	RelayAllowedOrigins []string      `validate:"min=1"`

	ChimeSoundDir   string   `validate:"required"`
	ChimeMP3Command []string `validate:"min=1"`
	ChimeWAVCommand []string `validate:"min=1"`
}

var validate = validator.New()

// geocode resolves a city to coordinates; swapped in tests.
var geocode = func(apiKey, city, country string) (float64, float64, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logging.Log.Debugf("no .env file loaded: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}
	if cfg.ForecastDays, err = getenvInt("FORECAST_DAYS", 2); err != nil {
		return nil, err
	}

	// Refresh schedule: hourly, first run shortly after start.
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "60m"); err != nil {
		return nil, err
	}
	if cfg.RefreshInitialDelay, err = getenvDuration("REFRESH_INITIAL_DELAY", "5s"); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getenvDuration("REFRESH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.OpenMeteoBaseURL = getenvDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com")

	if cfg.StreamWriteTimeout, err = getenvDuration("STREAM_WRITE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StreamKeepAlive, err = getenvDuration("STREAM_KEEPALIVE", "30s"); err != nil {
		return nil, err
	}
	if cfg.RelayWriteTimeout, err = getenvDuration("RELAY_WRITE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.RelayAllowedOrigins = getenvList("RELAY_ALLOWED_ORIGINS", ",", "*")

	cfg.ChimeSoundDir = getenvDefault("CHIME_SOUND_DIR", "sounds")
	cfg.ChimeMP3Command = getenvList("CHIME_MP3_COMMAND", " ", "mpg123 -q")
	cfg.ChimeWAVCommand = getenvList("CHIME_WAV_COMMAND", " ", "aplay -q")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadLocation uses explicit coordinates when given, otherwise geocodes
// WEATHER_CITY if an API key is available, otherwise falls back to defaults.
func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		Latitude:  defaultLatitude,
		Longitude: defaultLongitude,
		Timezone:  getenvDefault("WEATHER_TIMEZONE", defaultTimezone),
	}

	latStr, lonStr := os.Getenv("WEATHER_LATITUDE"), os.Getenv("WEATHER_LONGITUDE")
	switch {
	case latStr != "" || lonStr != "":
		if latStr == "" || lonStr == "" {
			return loc, fmt.Errorf("WEATHER_LATITUDE and WEATHER_LONGITUDE must be set together")
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LATITUDE: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LONGITUDE: %w", err)
		}
		loc.Latitude, loc.Longitude = lat, lon

	case os.Getenv("WEATHER_CITY") != "" && os.Getenv("GEOCODER_API_KEY") != "":
		city, country := os.Getenv("WEATHER_CITY"), os.Getenv("WEATHER_COUNTRY")
		lat, lon, err := geocode(os.Getenv("GEOCODER_API_KEY"), city, country)
		if err != nil {
			return loc, fmt.Errorf("geocode %s,%s: %w", city, country, err)
		}
		loc.Latitude, loc.Longitude = lat, lon
	}

	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvList(key, sep, def string) []string {
	var out []string
	for _, part := range strings.Split(getenvDefault(key, def), sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
