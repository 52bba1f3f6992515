package schema

// Custom string types for type safety.
type (
	// Category is the semantic bucket a commit is classified into.
	Category string

	// JobStatus is the lifecycle state of an analysis job.
	JobStatus string

	// ImpactLevel ranks how much a commit or pattern changed the codebase.
	ImpactLevel string

	// OutputMode represents the format of CLI output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string

	// LLMProvider names the language model vendor behind the LLM client.
	LLMProvider string
)

// All commit categories, in categorization priority order.
const (
	BugfixCategory       Category = "bugfix"
	FeatureCategory      Category = "feature"
	RefactorCategory     Category = "refactor"
	DocsCategory         Category = "docs"
	TestCategory         Category = "test"
	ArchitectureCategory Category = "architecture"
	ChoreCategory        Category = "chore"
	UnknownCategory      Category = "unknown"
)

// AllCategories lists every category in the order the categorizer tries them.
var AllCategories = []Category{
	BugfixCategory,
	FeatureCategory,
	RefactorCategory,
	DocsCategory,
	TestCategory,
	ArchitectureCategory,
	ChoreCategory,
	UnknownCategory,
}

// All job states.
const (
	PendingStatus    JobStatus = "pending"
	ProcessingStatus JobStatus = "processing"
	CompletedStatus  JobStatus = "completed"
	FailedStatus     JobStatus = "failed"
)

// Impact levels.
const (
	LowImpact    ImpactLevel = "low"
	MediumImpact ImpactLevel = "medium"
	HighImpact   ImpactLevel = "high"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	BadgerBackend     DatabaseBackend = "badger"
	MemoryBackend     DatabaseBackend = "memory"
)

// All LLM providers supported.
const (
	AnthropicProvider LLMProvider = "anthropic"
	OpenAIProvider    LLMProvider = "openai"
	OfflineProvider   LLMProvider = "offline"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	BadgerBackend:     {},
	MemoryBackend:     {},
}

// ValidLLMProviders lists all valid LLM providers.
var ValidLLMProviders = map[LLMProvider]struct{}{
	AnthropicProvider: {},
	OpenAIProvider:    {},
	OfflineProvider:   {},
}

// IsTerminal reports whether no further transition is possible from s.
func (s JobStatus) IsTerminal() bool {
	return s == CompletedStatus || s == FailedStatus
}

// CanTransitionTo reports whether moving from s to next keeps the job
// lifecycle monotonic: pending -> processing -> completed|failed.
// Pending may also fail directly when the pipeline cannot start.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case "":
		return next == PendingStatus
	case PendingStatus:
		return next == ProcessingStatus || next == FailedStatus
	case ProcessingStatus:
		return next == CompletedStatus || next == FailedStatus
	default:
		return false
	}
}

// Rank orders impact levels so they can be compared.
func (l ImpactLevel) Rank() int {
	switch l {
	case HighImpact:
		return 3
	case MediumImpact:
		return 2
	case LowImpact:
		return 1
	default:
		return 0
	}
}
