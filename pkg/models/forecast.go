package models

import "time"

// Forecast is a single usage forecast published by the retailer
type Forecast struct {
	Date     time.Time `json:"date"`
	Duration string    `json:"duration"` // day, week or month
	Value    float64   `json:"value"`
	Label    string    `json:"label"`
	Range    string    `json:"range,omitempty"`
}
