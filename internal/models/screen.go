package models

import "time"

// CurrentConditions is the current-conditions view model shown at the top of the screen.
type CurrentConditions struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
	Humidity    int    `json:"humidity"`
	WindSpeed   int    `json:"windSpeed"` // km/h
	FeelsLike   int    `json:"feelsLike"`
	Time        string `json:"time"`
	Date        string `json:"date"`
}

// ForecastDay is one entry of the "next days" strip.
type ForecastDay struct {
	Day     string `json:"day"`
	Icon    string `json:"icon"`
	MaxTemp int    `json:"maxTemp"`
	MinTemp int    `json:"minTemp"`
}

// Source records where the displayed data came from. Not rendered.
type Source string

const (
	SourceNone     Source = ""
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Screen is the whole display state: both view models plus the loading indicators.
type Screen struct {
	Current    *CurrentConditions `json:"current"`
	Forecast   []ForecastDay      `json:"forecast"`
	Region     string             `json:"region,omitempty"`
	Loading    bool               `json:"loading"`
	Refreshing bool               `json:"refreshing"`
	UpdatedAt  time.Time          `json:"updatedAt,omitempty"`
	Source     Source             `json:"-"`
}
