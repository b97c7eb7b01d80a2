package display

// DefaultIconName is used for unknown or empty icon codes.
const DefaultIconName = "wb-sunny"

var iconNames = map[string]string{
	"01d": "wb-sunny",
	"01n": "nightlight",
	"02d": "partly-cloudy-day",
	"02n": "cloud",
	"03d": "cloud",
	"03n": "cloud",
	"04d": "cloud",
	"04n": "cloud",
	"09d": "rainy",
	"09n": "rainy",
	"10d": "rainy",
	"10n": "rainy",
	"11d": "flash-on",
	"11n": "flash-on",
	"13d": "ac-unit",
	"13n": "ac-unit",
	"50d": "cloud-queue",
	"50n": "cloud-queue",
}

// IconName maps an OpenWeatherMap icon code (e.g. "10n") to a Material icon name.
func IconName(code string) string {
	if name, ok := iconNames[code]; ok {
		return name
	}
	return DefaultIconName
}
