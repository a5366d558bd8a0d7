package internal

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultServerURL matches the backend's development default.
const DefaultServerURL = "http://127.0.0.1:8000"

// Config holds the client's settings. Precedence: command-line flags >
// environment (.env is loaded first, buildmychat-style) > config file >
// defaults. Flags are applied by the command layer after LoadConfig.
type Config struct {
	ServerURL string `yaml:"server_url"`
	DataDir   string `yaml:"data_dir"`
	Language  string `yaml:"language"`
	Theme     string `yaml:"theme"`
}

// DefaultDataDir returns ~/.taxchat, or a relative fallback when the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taxchat"
	}
	return filepath.Join(home, ".taxchat")
}

// LoadConfig assembles configuration from defaults, the optional YAML
// config file and the environment. A missing config file is not an error;
// a malformed one is reported so typos don't silently vanish.
func LoadConfig() (*Config, error) {
	// Pull in a .env if one exists; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL: DefaultServerURL,
		DataDir:   DefaultDataDir(),
	}

	path := filepath.Join(cfg.DataDir, "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &StorageError{Path: path, Op: "read", Err: err}
		}
		if cfg.ServerURL == "" {
			cfg.ServerURL = DefaultServerURL
		}
		if cfg.DataDir == "" {
			cfg.DataDir = DefaultDataDir()
		}
	}

	if v := os.Getenv("TAXCHAT_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("TAXCHAT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TAXCHAT_LANGUAGE"); v != "" {
		cfg.Language = v
	}

	return cfg, nil
}

// StorePath returns the path of the fallback store database.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "taxchat.db")
}

// Save writes the config file under the data dir.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return &StorageError{Path: c.DataDir, Op: "write", Err: err}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	path := filepath.Join(c.DataDir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}
