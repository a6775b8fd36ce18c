package record

import (
	"errors"
	"time"
)

// ArchiveRecord is a periodic aggregate of sensor readings produced by the
// host logger. It is owned by the host for the duration of one upload call;
// this process only reads it. All values arrive in metric units and are
// converted at format time. Optional fields use pointers so an absent
// observation can be told apart from a zero one.
type ArchiveRecord struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"` // always UTC

	TemperatureC       *float64 `json:"temperature_c,omitempty"`
	IndoorTemperatureC *float64 `json:"indoor_temperature_c,omitempty"`
	HumidityPct        *float64 `json:"humidity_pct,omitempty"`
	IndoorHumidityPct  *float64 `json:"indoor_humidity_pct,omitempty"`
	DewpointC          *float64 `json:"dewpoint_c,omitempty"`
	BarometerHpa       *float64 `json:"barometer_hpa,omitempty"`
	WindSpeedMS        *float64 `json:"wind_speed_ms,omitempty"`
	WindDirDeg         *float64 `json:"wind_dir_deg,omitempty"`
	WindGustMS         *float64 `json:"wind_gust_ms,omitempty"`
	WindGustDirDeg     *float64 `json:"wind_gust_dir_deg,omitempty"`
	RainMm             *float64 `json:"rain_mm,omitempty"`
	DailyRainMm        *float64 `json:"daily_rain_mm,omitempty"`
	SolarRadiationWm2  *float64 `json:"solar_radiation_wm2,omitempty"`
	UVIndex            *float64 `json:"uv_index,omitempty"`
	SoilTemperatureC   *float64 `json:"soil_temperature_c,omitempty"`
	SoilMoisturePct    *float64 `json:"soil_moisture_pct,omitempty"`
}

var (
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrNoReadings       = errors.New("at least one sensor reading is required")
)

// Validate checks the constraints the host guarantees for archive records.
// Records coming in over MQTT or HTTP are re-checked here because those
// transports accept arbitrary JSON.
func (r *ArchiveRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if r.HumidityPct != nil && (*r.HumidityPct < 0 || *r.HumidityPct > 100) {
		return errors.New("humidity_pct out of range (must be 0-100)")
	}
	if r.IndoorHumidityPct != nil && (*r.IndoorHumidityPct < 0 || *r.IndoorHumidityPct > 100) {
		return errors.New("indoor_humidity_pct out of range (must be 0-100)")
	}
	if r.BarometerHpa != nil && *r.BarometerHpa <= 0 {
		return errors.New("barometer_hpa must be positive")
	}
	if !r.hasReading() {
		return ErrNoReadings
	}
	return nil
}

func (r *ArchiveRecord) hasReading() bool {
	return r.TemperatureC != nil ||
		r.IndoorTemperatureC != nil ||
		r.HumidityPct != nil ||
		r.IndoorHumidityPct != nil ||
		r.DewpointC != nil ||
		r.BarometerHpa != nil ||
		r.WindSpeedMS != nil ||
		r.WindDirDeg != nil ||
		r.WindGustMS != nil ||
		r.WindGustDirDeg != nil ||
		r.RainMm != nil ||
		r.DailyRainMm != nil ||
		r.SolarRadiationWm2 != nil ||
		r.UVIndex != nil ||
		r.SoilTemperatureC != nil ||
		r.SoilMoisturePct != nil
}

// Age returns how old the record is relative to now.
func (r *ArchiveRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}
