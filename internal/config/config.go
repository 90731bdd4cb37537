// Package config loads and validates the build runtime's TOML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "30s"
// or "2m", following the teacher's config.Duration idiom.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// RuntimeConfig is the root configuration for the build runtime.
type RuntimeConfig struct {
	General    General    `toml:"general"`
	Agents     Agents     `toml:"agents"`
	Checks     Checks     `toml:"checks"`
	Thumbnails Thumbnails `toml:"thumbnails"`
	Versions   Versions   `toml:"versions"`
}

// General holds process-wide settings.
type General struct {
	LogLevel string `toml:"log_level"`
	StateDB  string `toml:"state_db"`
	LockFile string `toml:"lock_file"`
}

// Agents configures the Agent Bridge's LLM transport.
type Agents struct {
	Model              string   `toml:"model"`
	InterviewModel     string   `toml:"interview_model"` // BUILDRT_INTERVIEW_MODEL override
	InterviewMock      bool     `toml:"interview_mock"`  // BUILDRT_INTERVIEW_MOCK override
	RequestsPerMinute  int      `toml:"requests_per_minute"`
	MaxParseRetries    int      `toml:"max_parse_retries"`
	TransportRetries   int      `toml:"transport_retries"`
	PlannerTemperature float64  `toml:"planner_temperature"`
	ImplementerTemp    float64  `toml:"implementer_temperature"`
	ReviewerTemp       float64  `toml:"reviewer_temperature"`
	DeniedGlobals      []string `toml:"denied_globals"`
}

// Checks configures CheckTools execution, including optional sandboxing.
type Checks struct {
	Typecheck []string `toml:"typecheck"`
	Lint      []string `toml:"lint"`
	Unit      []string `toml:"unit"`
	Sandboxed bool     `toml:"sandboxed"`
	Image     string   `toml:"image"`
	Timeout   Duration `toml:"timeout"`
}

// Thumbnails configures the Thumbnail Queue worker pool.
type Thumbnails struct {
	Concurrency    int        `toml:"concurrency"`
	CaptureTimeout Duration   `toml:"capture_timeout"`
	BackoffSeconds []int      `toml:"backoff_seconds"`
	MaxAttempts    int        `toml:"max_attempts"`
	PollCron       string     `toml:"poll_cron"`
	Thumbnail      Dimensions `toml:"thumbnail"`
	OGImage        Dimensions `toml:"og_image"`
}

// Dimensions is a viewport/output size pair.
type Dimensions struct {
	ViewportW int `toml:"viewport_w"`
	ViewportH int `toml:"viewport_h"`
	OutW      int `toml:"out_w"`
	OutH      int `toml:"out_h"`
}

// Versions configures the Version Store's snapshot window and pruning.
type Versions struct {
	SnapshotWindow int `toml:"snapshot_window"`
	MaxPinned      int `toml:"max_pinned"`
	MaxBranches    int `toml:"max_branches"`
	Limit          int `toml:"limit"` // -1 means unbounded
}

// Default returns the configuration used when no TOML file is supplied,
// matching the fixed constants spec.md names throughout §4.7/§4.8.
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		General: General{
			LogLevel: "info",
			StateDB:  "buildrt.db",
			LockFile: "/tmp/buildrtdemo.lock",
		},
		Agents: Agents{
			Model:              "mock-model",
			RequestsPerMinute:  60,
			MaxParseRetries:    3,
			TransportRetries:   3,
			PlannerTemperature: 0.3,
			ImplementerTemp:    0.2,
			ReviewerTemp:       0.3,
		},
		Checks: Checks{
			Timeout: Duration{2 * time.Minute},
		},
		Thumbnails: Thumbnails{
			Concurrency:    2,
			CaptureTimeout: Duration{30 * time.Second},
			BackoffSeconds: []int{30, 45, 60},
			MaxAttempts:    3,
			PollCron:       "@every 5s",
			Thumbnail:      Dimensions{ViewportW: 375, ViewportH: 667, OutW: 300, OutH: 600},
			OGImage:        Dimensions{ViewportW: 1200, ViewportH: 630, OutW: 1200, OutH: 630},
		},
		Versions: Versions{
			SnapshotWindow: 3,
			MaxPinned:      3,
			MaxBranches:    3,
			Limit:          -1,
		},
	}
}

// Load reads a RuntimeConfig from a TOML file, falling back to Default()
// values for anything the file omits, then applies the non-empty
// BUILDRT_INTERVIEW_MODEL and BUILDRT_INTERVIEW_MOCK (a strconv.ParseBool
// value) environment variables over the result.
func Load(path string) (*RuntimeConfig, error) {
	cfg := Default()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if v := os.Getenv("BUILDRT_INTERVIEW_MODEL"); v != "" {
		cfg.Agents.InterviewModel = v
	}
	if mock, err := strconv.ParseBool(os.Getenv("BUILDRT_INTERVIEW_MOCK")); err == nil {
		cfg.Agents.InterviewMock = mock
	}
	return cfg, nil
}
