package models

import "time"

// CurrentReport is a current-weather reading decoupled from the provider wire format.
type CurrentReport struct {
	City        string
	Temp        float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64 // m/s
	Description string
	Icon        string
}

// ForecastSample is a single point of the 3-hour forecast feed.
type ForecastSample struct {
	Time    time.Time
	Icon    string
	TempMax float64
	TempMin float64
}
