package manifest

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// File is one file the host's extension installer copies into place.
type File struct {
	Source      string `yaml:"source" validate:"required"`
	Destination string `yaml:"destination" validate:"required"`
}

// Manifest is the declarative description the host's extension-install
// command consumes: which files to copy, which config stanza to merge, and
// which services to register.
type Manifest struct {
	Name        string `yaml:"name" validate:"required"`
	Version     string `yaml:"version" validate:"required"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`

	Files []File `yaml:"files" validate:"required,min=1,dive"`

	// Config is the stanza merged into the host configuration. It is kept
	// as a free-form tree; the host owns the schema.
	Config map[string]interface{} `yaml:"config"`

	// Services lists the entry points the host should start.
	Services []string `yaml:"services"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse unmarshals and validates manifest bytes.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
