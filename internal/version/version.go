package version

// Version is the current version of argo-signal.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-signal/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// RuleSchemaVersion is the version of the declarative rule contract understood by the evaluator.
// Strategies must declare the same major.minor version.
const RuleSchemaVersion = "1.0.0"

// GetVersion returns the current version of the application.
func GetVersion() string {
	return Version
}
