package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// CheckRuleSchemaCompatibility checks if a strategy's declared rule-schema version
// can be evaluated by an evaluator that implements schemaVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - An empty strategy version means "current" and is always compatible
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Schema 1.2.0, Strategy 1.2.0 -> OK (exact match)
//   - Schema 1.2.1, Strategy 1.2.0 -> OK (patch differs)
//   - Schema 1.3.0, Strategy 1.2.0 -> ERROR (minor differs)
//   - Schema 2.0.0, Strategy 1.2.0 -> ERROR (major differs)
func CheckRuleSchemaCompatibility(schemaVersion, strategyVersion string) error {
	schemaVersion = strings.TrimPrefix(strings.TrimSpace(schemaVersion), "v")
	strategyVersion = strings.TrimPrefix(strings.TrimSpace(strategyVersion), "v")

	if strategyVersion == "" {
		return nil
	}

	if schemaVersion == "main" || strategyVersion == "main" {
		return nil
	}

	schemaSemver, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid rule schema version '%s'", schemaVersion)
	}

	strategySemver, err := semver.NewVersion(strategyVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid strategy version '%s'", strategyVersion)
	}

	if schemaSemver.Major() != strategySemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: evaluator supports %d.x.x but strategy requires %d.x.x",
			schemaSemver.Major(), strategySemver.Major())
	}

	if schemaSemver.Minor() != strategySemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: evaluator supports %d.%d.x but strategy requires %d.%d.x",
			schemaSemver.Major(), schemaSemver.Minor(),
			strategySemver.Major(), strategySemver.Minor())
	}

	return nil
}
