package snapshot

import (
	"time"

	"github.com/jgoulah/usagesync/pkg/models"
)

// weatherRow is the on-disk layout of the weather snapshot
type weatherRow struct {
	SiteName        string    `parquet:"SiteName"`
	MeasurementName string    `parquet:"MeasurementName"`
	Time            time.Time `parquet:"Time,timestamp(millisecond:local)"`
	Value           float64   `parquet:"Value"`
}

// LoadWeather reads the weather snapshot; a missing file is an empty dataset
func LoadWeather(path string) ([]models.WeatherReading, error) {
	rows, err := readRows[weatherRow](path)
	if err != nil {
		return nil, err
	}

	readings := make([]models.WeatherReading, len(rows))
	for i, row := range rows {
		readings[i] = models.WeatherReading{
			SiteName:        row.SiteName,
			MeasurementName: row.MeasurementName,
			Time:            row.Time.UTC(),
			Value:           row.Value,
		}
	}
	return readings, nil
}

// SaveWeather replaces the weather snapshot at path
func SaveWeather(path string, readings []models.WeatherReading) error {
	rows := make([]weatherRow, len(readings))
	for i, r := range readings {
		rows[i] = weatherRow{
			SiteName:        r.SiteName,
			MeasurementName: r.MeasurementName,
			Time:            r.Time,
			Value:           r.Value,
		}
	}
	return writeRows(path, rows)
}
