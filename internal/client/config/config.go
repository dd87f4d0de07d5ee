package config

// Config holds runtime settings for the driftfile upload CLI.
//
// TimeLimit is in seconds and DownloadLimit counts downloads; zero values
// ask the server for its defaults.
type Config struct {
	ServerURL     string
	FilePath      string
	Metadata      string
	TimeLimit     int
	DownloadLimit int
	Encrypted     bool
	Authorization string
	Bearer        string
	PromptBearer  bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
