package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds everything an App needs that is not specific to a single
// derivation request. It can be read from a YAML file; command-line flags
// override the file.
type Config struct {
	LogFormat       string `yaml:"log_format" validate:"oneof=text json"`
	LogLevel        string `yaml:"log_level" validate:"oneof=debug info warn error"`
	HealthcheckPort int    `yaml:"healthcheck_port" validate:"gte=0,lte=65535"`

	// Definitions are extra .hcl files or directories loaded after the
	// bundled analyses.
	Definitions []string `yaml:"definitions"`

	// Dataset is a local directory or a gs://bucket/prefix URL.
	Dataset  string `yaml:"dataset"`
	Depth    int    `yaml:"depth" validate:"gte=0,lte=2"`
	CacheDir string `yaml:"cache_dir"`

	Mode              string            `yaml:"mode" validate:"oneof=single multi submit"`
	Workers           int               `yaml:"workers" validate:"gte=1"`
	WorkDir           string            `yaml:"work_dir" validate:"required"`
	SubmitCommand     string            `yaml:"submit_command"`
	Reprocess         bool              `yaml:"reprocess"`
	ContinueOnError   bool              `yaml:"continue_on_error"`
	CheckRequirements bool              `yaml:"check_requirements"`
	Versions          map[string]string `yaml:"versions"`

	// ProvenanceDB is the badger directory of provenance records. Empty
	// keeps records in memory for the lifetime of the process.
	ProvenanceDB  string `yaml:"provenance_db"`
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=none stdout"`
	MatlabCommand string `yaml:"matlab_command"`
}

// DefaultConfig returns the configuration used when neither a file nor
// flags say otherwise.
func DefaultConfig() Config {
	return Config{
		LogFormat:     "text",
		LogLevel:      "info",
		Depth:         2,
		Mode:          "single",
		Workers:       1,
		WorkDir:       "work",
		TraceExporter: "none",
		MatlabCommand: "matlab",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("invalid %s: %q fails %q", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
			}
			return nil, errors.New(strings.Join(msgs, "; "))
		}
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads a YAML file on top of base. Keys absent from the
// file keep their value in base; unknown keys are rejected.
func LoadConfigFile(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return base, nil
}
