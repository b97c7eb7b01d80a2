// Package forecast collapses the provider's 3-hour forecast feed into per-day summaries.
package forecast

import (
	"time"

	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/models"
)

const (
	// DefaultMaxDays is the number of day summaries shown on the screen.
	DefaultMaxDays = 3
	// DefaultWindow is how many leading 3-hour samples feed the reducer (~27h).
	DefaultWindow = 9
)

// DayLabeler returns the grouping label for a sample time, e.g. "TER".
type DayLabeler func(t time.Time) string

// Window returns the first n samples. n <= 0 returns all of them.
func Window(samples []models.ForecastSample, n int) []models.ForecastSample {
	if n <= 0 || n >= len(samples) {
		return samples
	}
	return samples[:n]
}

// Reduce groups samples by day label in first-seen order and keeps at most maxDays groups.
// Each summary carries the icon and rounded temperatures of the first sample with that label;
// later samples for the same label are ignored. Empty input yields an empty slice.
func Reduce(samples []models.ForecastSample, label DayLabeler, maxDays int) []models.ForecastDay {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	days := make([]models.ForecastDay, 0, maxDays)
	seen := make(map[string]struct{}, maxDays)
	for _, s := range samples {
		if len(days) == maxDays {
			break
		}
		day := label(s.Time)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, models.ForecastDay{
			Day:     day,
			Icon:    s.Icon,
			MaxTemp: display.Round(s.TempMax),
			MinTemp: display.Round(s.TempMin),
		})
	}
	return days
}
