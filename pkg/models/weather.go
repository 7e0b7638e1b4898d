package models

import "time"

// WeatherReading is a single measurement from a weather station
type WeatherReading struct {
	SiteName        string    `json:"site_name"`
	MeasurementName string    `json:"measurement_name"`
	Time            time.Time `json:"time"`
	Value           float64   `json:"value"`
}

// Key identifies a reading for deduplication
func (r WeatherReading) Key() string {
	return r.SiteName + "|" + r.MeasurementName + "|" + r.Time.Format(time.RFC3339Nano)
}
