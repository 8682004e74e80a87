package pipeline

// Default values for budget processing.
// These can be overridden via configuration.
const (
	// DefaultArtifactPrefix is the object prefix of audit artifacts.
	DefaultArtifactPrefix = "budgets"

	// DefaultBatchConcurrency bounds how many sheets a batch processes at once.
	DefaultBatchConcurrency = 4
)
