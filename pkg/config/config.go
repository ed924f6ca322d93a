package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kidandcat/pagecheck/pkg/fixture"
)

// FileConfig represents the configuration loaded from a file
type FileConfig struct {
	BaseURL            string        `yaml:"baseURL" json:"baseURL"`
	Headless           *bool         `yaml:"headless" json:"headless"`
	Timeout            *Duration     `yaml:"timeout" json:"timeout"`
	NavigationTimeout  *Duration     `yaml:"navigationTimeout" json:"navigationTimeout"`
	FailOnConsoleError *bool         `yaml:"failOnConsoleError" json:"failOnConsoleError"`
	ScreenshotDir      string        `yaml:"screenshotDir" json:"screenshotDir"`
	HighlightDelay     *Duration     `yaml:"highlightDelay" json:"highlightDelay"`
	ViewportWidth      int           `yaml:"viewportWidth" json:"viewportWidth"`
	ViewportHeight     int           `yaml:"viewportHeight" json:"viewportHeight"`
	FixtureRoot        string        `yaml:"fixtureRoot" json:"fixtureRoot"`
	Fixtures           FixtureConfig `yaml:"fixtures" json:"fixtures"`
	LogLevel           string        `yaml:"logLevel" json:"logLevel"`
	LogFormat          string        `yaml:"logFormat" json:"logFormat"`
}

// FixtureConfig overrides the fixture parse defaults. Unset fields keep
// the loader defaults.
type FixtureConfig struct {
	Trim          *bool  `yaml:"trim" json:"trim"`
	SkipBlankRows *bool  `yaml:"skipBlankRows" json:"skipBlankRows"`
	Comma         string `yaml:"comma" json:"comma"`
	Comment       string `yaml:"comment" json:"comment"`
}

// Duration is a custom type for unmarshaling duration strings
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// LoadConfig loads configuration from file
func LoadConfig(filename string) (*FileConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config FileConfig
	ext := filepath.Ext(filename)

	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".json":
		err = json.Unmarshal(data, &config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, err := config.FixtureOptions(); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile searches for a config file in the current directory
func FindConfigFile() string {
	configNames := []string{
		"pagecheck.config.yaml",
		"pagecheck.config.yml",
		"pagecheck.config.json",
		"pagecheck.yaml",
		"pagecheck.yml",
		"pagecheck.json",
		".pagecheck.yaml",
		".pagecheck.yml",
		".pagecheck.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	return ""
}

// LoadEnv reads KEY=value pairs from a dotenv file into the process
// environment. Variables already set are kept. A missing file is not an
// error.
func LoadEnv(filename string) error {
	if filename == "" {
		filename = ".env"
	}
	if err := godotenv.Load(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL       = "PAGECHECK_BASE_URL"
	EnvHeadless      = "PAGECHECK_HEADLESS"
	EnvFixtureRoot   = "PAGECHECK_FIXTURE_ROOT"
	EnvScreenshotDir = "PAGECHECK_SCREENSHOT_DIR"
	EnvLogLevel      = "PAGECHECK_LOG_LEVEL"
)

// ApplyEnv overlays PAGECHECK_* environment variables on cfg.
func ApplyEnv(cfg *FileConfig) error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.Headless = &headless
	}
	if v := os.Getenv(EnvFixtureRoot); v != "" {
		cfg.FixtureRoot = v
	}
	if v := os.Getenv(EnvScreenshotDir); v != "" {
		cfg.ScreenshotDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// FixtureOptions converts the fixtures section into loader options.
func (c *FileConfig) FixtureOptions() ([]fixture.Option, error) {
	var opts []fixture.Option
	f := c.Fixtures
	if f.Trim != nil {
		opts = append(opts, fixture.WithTrim(*f.Trim))
	}
	if f.SkipBlankRows != nil {
		opts = append(opts, fixture.WithSkipBlankRows(*f.SkipBlankRows))
	}
	if f.Comma != "" {
		r, err := singleRune("comma", f.Comma)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fixture.WithComma(r))
	}
	if f.Comment != "" {
		r, err := singleRune("comment", f.Comment)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fixture.WithComment(r))
	}
	return opts, nil
}

func singleRune(field, s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("fixtures.%s must be a single character, got %q", field, s)
	}
	return runes[0], nil
}
