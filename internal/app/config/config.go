package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meridius/docx2mail/internal/app/mailclient"
)

// Mail backend names accepted in configuration.
const (
	BackendEML  = "eml"
	BackendIMAP = "imap"
)

type Config struct {
	LogLevel int            `yaml:"log_level"` // Logging level (e.g., -4: debug, 0: info, etc.).
	Editor   EditorConfig   `yaml:"editor"`    // External editor used for HTML export.
	Mail     MailConfig     `yaml:"mail"`      // Mail backend selection and settings.
	Template TemplateConfig `yaml:"template"`  // Placeholder substitution context.
}

type EditorConfig struct {
	Command string `yaml:"command"` // Editor binary, e.g. soffice.
}

type MailConfig struct {
	Backend string                `yaml:"backend"` // Which mail backend to use: eml or imap.
	EML     EMLConfig             `yaml:"eml"`
	IMAP    mailclient.IMAPConfig `yaml:"imap"`
}

type EMLConfig struct {
	Dir string `yaml:"dir"` // Directory where saved .eml files are written.
}

type TemplateConfig struct {
	Values     map[string]any `yaml:"values"`      // Inline placeholder values.
	ValuesFile string         `yaml:"values_file"` // Optional YAML file with placeholder values.
}

// LoadConfig reads the YAML configuration, expanding ${VAR} references from
// the environment after optionally loading an env file.
func LoadConfig(cfgFilepath, envFilepath string) (Config, error) {
	cfg := Config{
		Editor: EditorConfig{Command: "soffice"},
		Mail:   MailConfig{Backend: BackendEML, EML: EMLConfig{Dir: "."}},
	}

	if _, err := os.Stat(envFilepath); err == nil {
		if err = godotenv.Load(envFilepath); err != nil {
			return cfg, fmt.Errorf("unable to load environment variables from file: %w", err)
		}
	}

	fileBytes, err := os.ReadFile(cfgFilepath)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("configuration file at this path doesn't exist: %w", err)
		case errors.Is(err, os.ErrPermission):
			return cfg, fmt.Errorf("permission denied for accessing configuration file: %w", err)
		default:
			return cfg, fmt.Errorf("unexpected error during reading configuration file: %w", err)
		}
	}

	envExpanded := os.ExpandEnv(string(fileBytes))
	if err = yaml.Unmarshal([]byte(envExpanded), &cfg); err != nil {
		return cfg, fmt.Errorf("unable to unmarshal configuration file: %w", err)
	}

	if cfg.Mail.Backend != BackendEML && cfg.Mail.Backend != BackendIMAP {
		return cfg, fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}

	if cfg.Template.ValuesFile != "" {
		values, err := loadValuesFile(cfg.Template.ValuesFile)
		if err != nil {
			return cfg, err
		}
		if cfg.Template.Values == nil {
			cfg.Template.Values = values
		} else {
			// Inline values take precedence over the values file.
			for k, v := range values {
				if _, ok := cfg.Template.Values[k]; !ok {
					cfg.Template.Values[k] = v
				}
			}
		}
	}

	return cfg, nil
}

func loadValuesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read template values file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unable to unmarshal template values file: %w", err)
	}
	return values, nil
}
