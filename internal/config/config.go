package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// TwilioConfig carries the credentials and workspace identity for the
// telephony and routing platform. VMWorkerSID is the reserved sentinel
// worker that means "route to voicemail".
type TwilioConfig struct {
	AccountSID   string `yaml:"accountSid" validate:"required"`
	AuthToken    string `yaml:"authToken" validate:"required"`
	WorkspaceSID string `yaml:"workspaceSid" validate:"required"`
	VMWorkerSID  string `yaml:"vmWorkerSid" validate:"required"`
	CallerID     string `yaml:"callerId" validate:"required"`

	AMDEnabled        bool   `yaml:"amdEnabled"`
	VoicemailEnabled  bool   `yaml:"voicemailEnabled"`
	TranscriptionMode string `yaml:"transcriptionMode" validate:"omitempty,oneof=off english_only all"`
}

// ShiftConfig names a recurring shift window. The name doubles as the
// roster-store lookup key once qualified with a weekday ("Tuesday 5PM -
// 8PM"); the rrule drives the shift-warnings job.
type ShiftConfig struct {
	Name  string `yaml:"name" validate:"required"`
	RRule string `yaml:"rrule" validate:"required"`
}

// Config represents the application configuration.
type Config struct {
	HostName          string        `yaml:"hostName" validate:"required"`
	ListenAddr        string        `yaml:"listenAddr"`
	Timezone          string        `yaml:"timezone" validate:"required"`
	DatabaseURL       string        `yaml:"databaseUrl" validate:"required"`
	SchedulePath      string        `yaml:"schedulePath" validate:"required"`
	LegacyScheduleURL string        `yaml:"legacyScheduleUrl,omitempty"`
	Twilio            TwilioConfig  `yaml:"twilio"`
	Shifts            []ShiftConfig `yaml:"shifts,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from hotline_config.yaml.
// It looks for the config file in the current directory first, then in the
// user's home directory.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Twilio.TranscriptionMode == "" {
		cfg.Twilio.TranscriptionMode = "off"
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax for
// each configured shift.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, shift := range cfg.Shifts {
		if _, err := rrule.StrToRRule(shift.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shifts[%d]: %w", i, err)
		}
	}

	return nil
}

// TranscribeFor reports whether voicemail transcription applies to calls in
// the given language.
func (t TwilioConfig) TranscribeFor(language string) bool {
	switch t.TranscriptionMode {
	case "all":
		return true
	case "english_only":
		return language == "English"
	}
	return false
}

// findConfigFile searches for hotline_config.yaml in current directory and
// home directory.
func findConfigFile() (string, error) {
	configFileName := "hotline_config.yaml"

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
