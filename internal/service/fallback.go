package service

import (
	"time"

	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/models"
)

// Fixed payload shown whenever a fetch cycle fails. Values are already rounded.
const (
	fallbackTemperature = 24
	fallbackCondition   = "céu limpo"
	fallbackIcon        = "01d"
	fallbackHumidity    = 65
	fallbackWindKPH     = 10
	fallbackFeelsLike   = 25
)

var fallbackDays = []models.ForecastDay{
	{Day: "TER", Icon: "01d", MaxTemp: 26, MinTemp: 18},
	{Day: "QUA", Icon: "02d", MaxTemp: 25, MinTemp: 19},
	{Day: "QUI", Icon: "04d", MaxTemp: 23, MinTemp: 17},
}

// FallbackCurrent returns the fixed current conditions for city, stamped with now.
func FallbackCurrent(city string, locale display.Locale, now time.Time) *models.CurrentConditions {
	return &models.CurrentConditions{
		City:        city,
		Temperature: fallbackTemperature,
		Condition:   fallbackCondition,
		Icon:        fallbackIcon,
		Humidity:    fallbackHumidity,
		WindSpeed:   fallbackWindKPH,
		FeelsLike:   fallbackFeelsLike,
		Time:        locale.Clock(now),
		Date:        locale.Date(now),
	}
}

// FallbackForecast returns a fresh copy of the fixed three-day forecast.
func FallbackForecast() []models.ForecastDay {
	days := make([]models.ForecastDay, len(fallbackDays))
	copy(days, fallbackDays)
	return days
}
