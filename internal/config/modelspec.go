package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gitlab.com/emaxgrid.net/internal/domain"
)

// LoadModelSpecification reads and validates the YAML model specification
// the controller broadcasts to the pool. A specification that fails
// validation is a fatal configuration error for the whole run.
func LoadModelSpecification(path string) (*domain.ModelSpecification, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model specification: %w", err)
	}

	var spec domain.ModelSpecification
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse model specification: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model specification %s: %w", path, err)
	}

	return &spec, nil
}
