// Package config loads the typescope configuration file.
//
// The file is YAML. Every section is optional; missing values keep the
// defaults of Default. After decoding, the configuration is validated with
// struct tags and each violation is reported with its position in the file:
//
//	loader:
//	  base_location: /opt/app/bin
//	  binaries: [Plugins, Extensions]
//	  memory_limit_pages: 512
//	  timeout: 10s
//	telemetry:
//	  logging:
//	    level: debug
//	    format: json
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openfroyo/typescope/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

// Config is the complete typescope configuration.
type Config struct {
	// Loader configures binary resolution and the WASM host.
	Loader LoaderConfig `yaml:"loader"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// LoaderConfig configures the binary loader.
type LoaderConfig struct {
	// BaseLocation is the directory binaries are read from by the full
	// profile. Other profiles ignore it.
	BaseLocation string `yaml:"base_location"`

	// Binaries are the logical names scanned when none are given on the
	// command line.
	Binaries []string `yaml:"binaries" validate:"dive,required"`

	// MemoryLimitPages caps guest memory in 64KB pages. Zero keeps the host
	// default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"lte=65536"`

	// Timeout bounds each static method invocation. Zero disables it.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// ABI is the newest type table ABI accepted. Zero keeps the host
	// default.
	ABI int `yaml:"abi" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			BaseLocation: ".",
			Timeout:      30 * time.Second,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// ValidationError is one problem found in a configuration file.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the dotted key path (e.g., "loader.memory_limit_pages").
	Path string `json:"path,omitempty"`

	// Message describes the problem.
	Message string `json:"message"`
}

// String formats the error as file:line:column: path: message.
func (e ValidationError) String() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Error is returned when a configuration does not validate.
type Error struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Errors) == 1 {
		return "invalid configuration: " + e.Errors[0].String()
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.String()
	}
	return fmt.Sprintf("invalid configuration (%d errors): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates YAML content over the defaults. file is only
// used in error positions.
func Parse(data []byte, file string) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
	}

	if errs := validate(cfg, &root, file); len(errs) > 0 {
		return nil, &Error{Errors: errs}
	}
	return cfg, nil
}

// Validate checks cfg without position information.
func (c *Config) Validate() error {
	if errs := validate(c, nil, ""); len(errs) > 0 {
		return &Error{Errors: errs}
	}
	return nil
}

var structValidator = newValidator()

// newValidator reports fields by their yaml keys.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validate(cfg *Config, root *yaml.Node, file string) []ValidationError {
	var out []ValidationError

	var verrs validator.ValidationErrors
	if err := structValidator.Struct(cfg); errors.As(err, &verrs) {
		for _, fe := range verrs {
			_, path, _ := strings.Cut(fe.Namespace(), ".")
			out = append(out, positioned(root, file, path, describe(fe)))
		}
	} else if err != nil {
		out = append(out, ValidationError{File: file, Message: err.Error()})
	}

	// Cross-field rules live in the telemetry package.
	if len(out) == 0 {
		if err := cfg.Telemetry.Validate(); err != nil {
			out = append(out, positioned(root, file, "telemetry", err.Error()))
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("must be %s %s, got %v", fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// positioned attaches the location of path in root to a message. Keys
// absent from the file point at the nearest enclosing key present.
func positioned(root *yaml.Node, file, path, msg string) ValidationError {
	ve := ValidationError{File: file, Path: path, Message: msg}
	if n := lookup(root, path); n != nil {
		ve.Line, ve.Column = n.Line, n.Column
	}
	return ve
}

func lookup(root *yaml.Node, path string) *yaml.Node {
	if root == nil {
		return nil
	}
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if path == "" {
		return n
	}

	for _, key := range strings.Split(path, ".") {
		key, index, indexed := strings.Cut(key, "[")
		next := mappingValue(n, key)
		if next == nil {
			return n
		}
		n = next
		if indexed && n.Kind == yaml.SequenceNode {
			var i int
			if _, err := fmt.Sscanf(index, "%d]", &i); err == nil && i < len(n.Content) {
				n = n.Content[i]
			}
		}
	}
	return n
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
