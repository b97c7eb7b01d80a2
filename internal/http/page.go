package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageLabels are the fixed strings on the screen, per language.
type pageLabels struct {
	HTMLLang  string
	Loading   string // formatted with the city name
	Humidity  string
	Wind      string
	FeelsLike string
	NextDays  string
	Refresh   string
}

var labelsByLang = map[string]pageLabels{
	"pt_br": {
		HTMLLang:  "pt-BR",
		Loading:   "Buscando dados de %s...",
		Humidity:  "Umidade",
		Wind:      "Vento",
		FeelsLike: "Sensação",
		NextDays:  "PRÓXIMOS DIAS",
		Refresh:   "Atualizar",
	},
	"en": {
		HTMLLang:  "en",
		Loading:   "Fetching data for %s...",
		Humidity:  "Humidity",
		Wind:      "Wind",
		FeelsLike: "Feels like",
		NextDays:  "NEXT DAYS",
		Refresh:   "Refresh",
	},
}

// PageConfig describes the fixed parts of the rendered screen.
type PageConfig struct {
	City          string // display name used on the loading screen, e.g. "Cascavel"
	Region        string // appended to the city name, e.g. "PR"
	ReloadSeconds int    // auto-reload interval while loading or refreshing (default 2)
}

// PageRenderer renders the weather screen as HTML.
type PageRenderer struct {
	tmpl   *template.Template
	locale display.Locale
	labels pageLabels
	cfg    PageConfig
}

// pageData is the template input.
type pageData struct {
	Screen     models.Screen
	Labels     pageLabels
	Loading    string
	CityLabel  string
	Condition  string
	AutoReload int
}

// NewPageRenderer parses the embedded template. locale selects labels and casing.
func NewPageRenderer(locale display.Locale, cfg PageConfig) (*PageRenderer, error) {
	labels, ok := labelsByLang[locale.Code()]
	if !ok {
		return nil, fmt.Errorf("no page labels for language %q", locale.Code())
	}
	if cfg.ReloadSeconds <= 0 {
		cfg.ReloadSeconds = 2
	}
	tmpl, err := template.New("screen.html").Funcs(template.FuncMap{
		"icon": materialIcon,
	}).ParseFS(templateFS, "templates/screen.html")
	if err != nil {
		return nil, fmt.Errorf("parse screen template: %w", err)
	}
	return &PageRenderer{tmpl: tmpl, locale: locale, labels: labels, cfg: cfg}, nil
}

// Render executes the template for screen into a buffer so a failure never sends a partial page.
func (p *PageRenderer) Render(screen models.Screen) ([]byte, error) {
	data := pageData{
		Screen:  screen,
		Labels:  p.labels,
		Loading: fmt.Sprintf(p.labels.Loading, p.cfg.City),
	}
	if screen.Loading || screen.Refreshing {
		data.AutoReload = p.cfg.ReloadSeconds
	}
	if screen.Current != nil {
		data.CityLabel = cityLabel(screen.Current.City, p.cfg.Region)
		data.Condition = p.locale.Capitalize(screen.Current.Condition)
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute screen template: %w", err)
	}
	return buf.Bytes(), nil
}

func cityLabel(city, region string) string {
	if region == "" {
		return city
	}
	return city + ", " + region
}

// materialIcon maps a provider icon code to the Material Icons ligature ("wb-sunny" -> "wb_sunny").
func materialIcon(code string) string {
	return strings.ReplaceAll(display.IconName(code), "-", "_")
}
