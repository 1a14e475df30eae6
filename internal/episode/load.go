package episode

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads an episode definition from a YAML file and normalizes it.
func Load(path string) (*Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read episode file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML episode definition and normalizes it.
func Parse(data []byte) (*Episode, error) {
	var ep Episode
	if err := yaml.Unmarshal(data, &ep); err != nil {
		return nil, fmt.Errorf("parse episode yaml: %w", err)
	}
	if len(ep.Scenes) == 0 {
		return nil, errors.New("episode has no scenes")
	}
	if err := ep.Normalize(); err != nil {
		return nil, err
	}
	return &ep, nil
}
