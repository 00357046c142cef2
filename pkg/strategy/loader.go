package strategy

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a strategy definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Newf(errors.ErrCodeMalformedStrategy, "unsupported strategy file extension: %s", path)
	}
}

// LoadFile reads and validates a YAML or JSON strategy definition.
func LoadFile(path string) (types.StrategyDefinition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return types.StrategyDefinition{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.StrategyDefinition{}, errors.Wrapf(errors.ErrCodeMalformedStrategy, err, "failed to read strategy file %s", path)
	}

	return LoadBytes(data, format)
}

// LoadBytes decodes and validates a strategy definition.
func LoadBytes(data []byte, format Format) (types.StrategyDefinition, error) {
	var definition types.StrategyDefinition

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &definition); err != nil {
			return types.StrategyDefinition{}, errors.Wrap(errors.ErrCodeMalformedStrategy, "failed to decode strategy yaml", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&definition); err != nil {
			return types.StrategyDefinition{}, errors.Wrap(errors.ErrCodeMalformedStrategy, "failed to decode strategy json", err)
		}
	default:
		return types.StrategyDefinition{}, errors.Newf(errors.ErrCodeMalformedStrategy, "unsupported strategy format: %s", format)
	}

	if err := Validate(definition); err != nil {
		return types.StrategyDefinition{}, err
	}

	return definition, nil
}

// LoadDir loads every strategy file in dir, sorted by file name. Strategy IDs must be unique.
func LoadDir(dir string) ([]types.StrategyDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedStrategy, err, "failed to read strategy directory %s", dir)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if _, err := FormatFromPath(entry.Name()); err != nil {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	definitions := make([]types.StrategyDefinition, 0, len(names))
	seen := make(map[string]string, len(names))

	for _, name := range names {
		definition, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		if previous, ok := seen[definition.ID]; ok {
			return nil, errors.Newf(errors.ErrCodeMalformedStrategy, "duplicate strategy id %q in %s and %s", definition.ID, previous, name)
		}

		seen[definition.ID] = name
		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// Validate checks the structural constraints of a definition.
func Validate(definition types.StrategyDefinition) error {
	if err := validator.New().Struct(definition); err != nil {
		return errors.NewConfigurationError(definition.ID, "invalid strategy definition", err)
	}

	return nil
}
