package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ValidationError struct {
	Field   string
	Message string
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator validates a parsed Settings value.
type Validator interface {
	Validate(settings *Settings) []ValidationError
}

// DefaultValueSetter handles the interface for setting default values
type DefaultValueSetter interface {
	SetDefaults(settings *Settings)
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	expanded := os.Expand(string(data), os.Getenv)
	return []byte(expanded)
}

// Loader parses Settings from YAML with env expansion, defaults and validation.
type Loader struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewLoader creates a new Loader with the given components
func NewLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *Loader {
	return &Loader{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// NewDefaultLoader wires the standard expander, defaults and validators.
func NewDefaultLoader() *Loader {
	return NewLoader(&EnvExpander{}, &SettingsDefaults{}, &SettingsValidator{})
}

// Load reads Settings from a YAML file
func (l *Loader) Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses a yaml config
func (l *Loader) Parse(data []byte) (*Settings, error) {
	// Expand variables if an expander is configured
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Set default values if a default setter is configured
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(&settings)
	}

	// Validate the settings
	var allErrors []ValidationError
	for _, validator := range l.validators {
		errs := validator.Validate(&settings)
		allErrors = append(allErrors, errs...)
	}

	if len(allErrors) > 0 {
		return nil, fmt.Errorf("validation errors: %v", allErrors)
	}

	return &settings, nil
}

// SettingsDefaults implements DefaultValueSetter for Settings
type SettingsDefaults struct{}

// SetDefaults sets default values for Settings
func (d *SettingsDefaults) SetDefaults(settings *Settings) {
	if settings.APIPath == "" {
		settings.APIPath = "/api/ptaf/v4"
	}
	if settings.RequestTimeout == 0 {
		settings.RequestTimeout = Duration(30 * time.Second)
	}
	if settings.TokenRefreshSkew == 0 {
		settings.TokenRefreshSkew = Duration(30 * time.Second)
	}
	if settings.Export.SnapshotsDir == "" {
		settings.Export.SnapshotsDir = "snapshots"
	}
	if settings.Export.RulesDir == "" {
		settings.Export.RulesDir = "rules"
	}
	if settings.Export.ActionsDir == "" {
		settings.Export.ActionsDir = "actions"
	}
	if settings.Export.TenantsEndpoint == "" {
		settings.Export.TenantsEndpoint = "/auth/tenants"
	}
	if settings.Export.SnapshotEndpoint == "" {
		settings.Export.SnapshotEndpoint = "/config/snapshot"
	}
	if settings.Export.RulesEndpoint == "" {
		settings.Export.RulesEndpoint = "/config/policies/rules"
	}
	if settings.Export.ActionsEndpoint == "" {
		settings.Export.ActionsEndpoint = "/config/actions"
	}
	if settings.Server.Listen == "" {
		settings.Server.Listen = ":8080"
	}
	if settings.Log.Level == "" {
		settings.Log.Level = "info"
	}
}

// SettingsValidator implements Validator for Settings
type SettingsValidator struct{}

// Validate checks required fields and credential consistency.
func (v *SettingsValidator) Validate(settings *Settings) []ValidationError {
	var errs []ValidationError

	if settings.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "base_url",
			Message: "PTAF PRO instance URL is required",
		})
	}

	if _, err := settings.Auth.Method(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "auth",
			Message: err.Error(),
		})
	}

	if settings.Export.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "export.retention_days",
			Message: "retention must not be negative",
		})
	}

	return errs
}
