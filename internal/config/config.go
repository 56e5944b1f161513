package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"gopkg.in/yaml.v3"
)

// Config models qualityline.yml.
type Config struct {
	Organization struct {
		ID   string `yaml:"id" json:"id" validate:"notblank"`
		Name string `yaml:"name" json:"name"`
	} `yaml:"organization" json:"organization"`
	Catalog struct {
		File string `yaml:"file" json:"file,omitempty"`
	} `yaml:"catalog" json:"catalog"`
	Persistence  Persistence `yaml:"persistence" json:"persistence"`
	Log          Log         `yaml:"log" json:"log"`
	Server       Server      `yaml:"server" json:"server"`
	ProcessTypes []string    `yaml:"process_types" json:"process_types" validate:"min=1,dive,notblank"`
}

type Persistence struct {
	Driver    string `yaml:"driver" json:"driver" validate:"oneof=sqlite memory"`
	QueueSize int    `yaml:"queue_size" json:"queue_size" validate:"gte=0"`
}

type Log struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
}

type Server struct {
	Addr     string `yaml:"addr" json:"addr"`
	BasePath string `yaml:"base_path" json:"base_path" validate:"omitempty,startswith=/"`
}

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

var validate = newValidator()

// newValidator reports fields by their yaml names, config.persistence.driver
// rather than Config.Persistence.Driver.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with ql init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	field = "config." + field
	switch fe.Tag() {
	case "notblank", "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s needs at least %s entry", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of %s (got %q)", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gte":
		return fmt.Errorf("%s cannot be negative", field)
	case "startswith":
		return fmt.Errorf("%s must start with %s", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
	}
}

// AllowsProcessType reports whether processes of type t may be created.
func (c *Config) AllowsProcessType(t string) bool {
	for _, allowed := range c.ProcessTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "qualityline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(orgID string) string {
	return fmt.Sprintf(defaultTemplate, orgID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for an organization.
func Default(orgID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(orgID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `organization:
  id: %q
  name: ""

catalog:
  # Optional YAML file replacing the embedded ISO 9001 catalog.
  file: ""

persistence:
  driver: sqlite
  queue_size: 256

log:
  level: info
  format: text

server:
  addr: 127.0.0.1:8080
  base_path: /v0

process_types: [management, operational, support]
`
