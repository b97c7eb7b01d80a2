package display

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnsupportedLanguage is returned by NewLocale for languages without a calendar table.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Locale formats screen strings (clock, date, weekday labels) for one language and time zone.
// Casers are created per call; cases.Caser must not be shared between goroutines.
type Locale struct {
	code     string
	tag      language.Tag
	loc      *time.Location
	weekdays [7]string
	months   [12]string
	date     func(weekday string, day int, month string) string
}

var (
	ptWeekdays = [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}
	ptMonths   = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}
	enWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	enMonths   = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// NewLocale returns the Locale for an OpenWeatherMap lang value ("pt_br", "en").
// A nil loc means UTC.
func NewLocale(lang string, loc *time.Location) (Locale, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch NormalizeLanguage(lang) {
	case "pt_br":
		return Locale{
			code:     "pt_br",
			tag:      language.BrazilianPortuguese,
			loc:      loc,
			weekdays: ptWeekdays,
			months:   ptMonths,
			date: func(weekday string, day int, month string) string {
				return fmt.Sprintf("%s., %d de %s.", weekday, day, month)
			},
		}, nil
	case "en":
		return Locale{
			code:     "en",
			tag:      language.AmericanEnglish,
			loc:      loc,
			weekdays: enWeekdays,
			months:   enMonths,
			date: func(weekday string, day int, month string) string {
				return fmt.Sprintf("%s, %s %d", weekday, month, day)
			},
		}, nil
	}
	return Locale{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

// NormalizeLanguage lowercases lang and maps "pt-BR" style tags to the provider form "pt_br".
func NormalizeLanguage(lang string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(lang)), "-", "_")
}

// Code returns the provider language code, e.g. "pt_br".
func (l Locale) Code() string { return l.code }

// Location returns the time zone used for all formatting.
func (l Locale) Location() *time.Location { return l.loc }

// DayLabel returns the uppercase short weekday of t ("TER", "SÁB", "FRI").
func (l Locale) DayLabel(t time.Time) string {
	return cases.Upper(l.tag).String(l.weekdays[t.In(l.loc).Weekday()])
}

// Clock formats t as a two-digit 24h clock, e.g. "09:05".
func (l Locale) Clock(t time.Time) string {
	return t.In(l.loc).Format("15:04")
}

// Date formats t as short weekday, day and short month ("sex., 17 de out.").
func (l Locale) Date(t time.Time) string {
	t = t.In(l.loc)
	return l.date(l.weekdays[t.Weekday()], t.Day(), l.months[t.Month()-1])
}

// Capitalize upper-cases the first letter of every word ("céu limpo" -> "Céu Limpo").
func (l Locale) Capitalize(s string) string {
	return cases.Title(l.tag).String(s)
}
