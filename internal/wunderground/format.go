package wunderground

import (
	"fmt"
	"net/url"

	"github.com/wxforward/wulike/internal/record"
)

// DateFormat is the timestamp layout the Weather Underground update API
// expects for the dateutc parameter (UTC, no timezone suffix).
const DateFormat = "2006-01-02 15:04:05"

// Request holds everything needed to build one update request for a server
// speaking the Weather Underground "weatherstation" protocol.
type Request struct {
	ServerURL    string
	Station      string
	Password     string
	SoftwareType string
}

// fieldFormats maps each supported record observation to its query parameter
// name, printf format, and unit conversion. The set and formats follow the
// Weather Underground PWS update schema; absent observations are omitted
// entirely rather than sent as zeroes. Rapidfire parameters (realtime,
// rtfreq) are never emitted: this uploader does not support the sub-minute
// push mode.
var fieldFormats = []struct {
	param   string
	format  string
	value   func(*record.ArchiveRecord) *float64
	convert func(float64) float64
}{
	{"tempf", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.TemperatureC }, record.CToF},
	{"indoortempf", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.IndoorTemperatureC }, record.CToF},
	{"humidity", "%.0f", func(r *record.ArchiveRecord) *float64 { return r.HumidityPct }, nil},
	{"indoorhumidity", "%.0f", func(r *record.ArchiveRecord) *float64 { return r.IndoorHumidityPct }, nil},
	{"dewptf", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.DewpointC }, record.CToF},
	{"baromin", "%.3f", func(r *record.ArchiveRecord) *float64 { return r.BarometerHpa }, record.HpaToInHg},
	{"windspeedmph", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.WindSpeedMS }, record.MSToMph},
	{"winddir", "%.0f", func(r *record.ArchiveRecord) *float64 { return r.WindDirDeg }, nil},
	{"windgustmph", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.WindGustMS }, record.MSToMph},
	{"windgustdir", "%.0f", func(r *record.ArchiveRecord) *float64 { return r.WindGustDirDeg }, nil},
	{"rainin", "%.2f", func(r *record.ArchiveRecord) *float64 { return r.RainMm }, record.MmToIn},
	{"dailyrainin", "%.2f", func(r *record.ArchiveRecord) *float64 { return r.DailyRainMm }, record.MmToIn},
	{"solarradiation", "%.2f", func(r *record.ArchiveRecord) *float64 { return r.SolarRadiationWm2 }, nil},
	{"UV", "%.2f", func(r *record.ArchiveRecord) *float64 { return r.UVIndex }, nil},
	{"soiltempf", "%.1f", func(r *record.ArchiveRecord) *float64 { return r.SoilTemperatureC }, record.CToF},
	{"soilmoisture", "%.0f", func(r *record.ArchiveRecord) *float64 { return r.SoilMoisturePct }, nil},
}

// BuildQuery maps an archive record onto the WU query parameter set.
func (q Request) BuildQuery(rec *record.ArchiveRecord) url.Values {
	values := url.Values{}
	values.Set("action", "updateraw")
	values.Set("ID", q.Station)
	values.Set("PASSWORD", q.Password)
	values.Set("dateutc", rec.Timestamp.UTC().Format(DateFormat))
	if q.SoftwareType != "" {
		values.Set("softwaretype", q.SoftwareType)
	}

	for _, f := range fieldFormats {
		v := f.value(rec)
		if v == nil {
			continue
		}
		x := *v
		if f.convert != nil {
			x = f.convert(x)
		}
		values.Set(f.param, fmt.Sprintf(f.format, x))
	}

	return values
}

// BuildURL returns the full GET URL for one archive record.
func (q Request) BuildURL(rec *record.ArchiveRecord) string {
	return fmt.Sprintf("%s?%s", q.ServerURL, q.BuildQuery(rec).Encode())
}
