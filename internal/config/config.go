package config

// Config holds the application configuration.
type Config struct {
	Server        string `yaml:"server"`
	Theme         string `yaml:"theme"`
	Transport     string `yaml:"transport"`
	ShowAccessURL bool   `yaml:"show_access_url"`
	HighlightBody bool   `yaml:"highlight_body"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	DataDir       string `yaml:"data_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server:        "http://localhost:8000",
		Theme:         "catppuccin-mocha",
		Transport:     "sse",
		ShowAccessURL: true,
		HighlightBody: true,
		LogFile:       "",
		LogLevel:      "info",
		DataDir:       "",
	}
}
