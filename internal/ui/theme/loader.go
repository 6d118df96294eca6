package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// yamlTheme is the YAML representation of a theme. Unset colors fall back to
// the default theme.
type yamlTheme struct {
	Name    string `yaml:"name"`
	Base    string `yaml:"base"`
	Surface string `yaml:"surface"`
	Overlay string `yaml:"overlay"`

	Text    string `yaml:"text"`
	Subtext string `yaml:"subtext"`
	Muted   string `yaml:"muted"`

	Mauve    string `yaml:"mauve"`
	Red      string `yaml:"red"`
	Peach    string `yaml:"peach"`
	Yellow   string `yaml:"yellow"`
	Green    string `yaml:"green"`
	Teal     string `yaml:"teal"`
	Blue     string `yaml:"blue"`
	Lavender string `yaml:"lavender"`

	BorderFocused   string `yaml:"border_focused"`
	BorderUnfocused string `yaml:"border_unfocused"`
}

// LoadCustomTheme loads a theme from a YAML file.
func LoadCustomTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("reading theme file: %w", err)
	}

	var yt yamlTheme
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return Theme{}, fmt.Errorf("parsing theme YAML: %w", err)
	}

	if yt.Name == "" {
		base := filepath.Base(path)
		yt.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	d := Default()
	pick := func(v string, fallback lipgloss.Color) lipgloss.Color {
		if v == "" {
			return fallback
		}
		return lipgloss.Color(v)
	}

	return Theme{
		Name:            yt.Name,
		Base:            pick(yt.Base, d.Base),
		Surface:         pick(yt.Surface, d.Surface),
		Overlay:         pick(yt.Overlay, d.Overlay),
		Text:            pick(yt.Text, d.Text),
		Subtext:         pick(yt.Subtext, d.Subtext),
		Muted:           pick(yt.Muted, d.Muted),
		Mauve:           pick(yt.Mauve, d.Mauve),
		Red:             pick(yt.Red, d.Red),
		Peach:           pick(yt.Peach, d.Peach),
		Yellow:          pick(yt.Yellow, d.Yellow),
		Green:           pick(yt.Green, d.Green),
		Teal:            pick(yt.Teal, d.Teal),
		Blue:            pick(yt.Blue, d.Blue),
		Lavender:        pick(yt.Lavender, d.Lavender),
		BorderFocused:   pick(yt.BorderFocused, d.BorderFocused),
		BorderUnfocused: pick(yt.BorderUnfocused, d.BorderUnfocused),
	}, nil
}

// LoadCustomThemes loads all YAML themes from a directory.
func LoadCustomThemes(dir string) map[string]Theme {
	themes := make(map[string]Theme)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return themes
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := LoadCustomTheme(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		themes[normalizeKey(t.Name)] = t
	}
	return themes
}
