package schema

// Field names of the built-in schema.
const (
	FieldStatus      = "status"
	FieldDuration    = "duration"
	FieldRepository  = "repository"
	FieldBranch      = "branch"
	FieldWorkflow    = "workflow"
	FieldTrigger     = "trigger"
	FieldAuthor      = "author"
	FieldEnvironment = "environment"
	FieldAttempt     = "attempt"
)

var (
	membership = []Operator{OpContains, OpNotEqual}
	ordering   = []Operator{OpContains, OpGreater, OpLess, OpGreaterEqual, OpLessEqual}
	numeric    = []Operator{OpContains, OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual}
)

// DefaultRules is the built-in field table for filtering pipeline runs.
var DefaultRules = []FieldRule{
	{
		Name:             FieldStatus,
		Label:            "Status",
		Operators:        membership,
		ValueType:        Enum,
		EnumValues:       []string{"success", "failed", "running", "pending", "cancelled", "skipped"},
		AllowMultiSelect: true,
		AllowNegation:    true,
	},
	{
		Name:             FieldDuration,
		Label:            "Duration",
		Operators:        ordering,
		ValueType:        Range,
		AllowMultiSelect: true,
	},
	{
		Name:             FieldRepository,
		Label:            "Repository",
		Operators:        membership,
		ValueType:        Text,
		AllowMultiSelect: true,
		AllowNegation:    true,
	},
	{
		Name:             FieldBranch,
		Label:            "Branch",
		Operators:        membership,
		ValueType:        Text,
		AllowMultiSelect: true,
		AllowNegation:    true,
	},
	{
		Name:             FieldWorkflow,
		Label:            "Workflow",
		Operators:        []Operator{OpContains},
		ValueType:        Text,
		AllowMultiSelect: true,
		AllowNegation:    true,
	},
	{
		Name:             FieldTrigger,
		Label:            "Event",
		Operators:        membership,
		ValueType:        Enum,
		EnumValues:       []string{"push", "pull_request", "schedule", "workflow_dispatch", "release"},
		AllowMultiSelect: true,
		AllowNegation:    true,
	},
	{
		Name:             FieldAuthor,
		Label:            "Actor",
		Operators:        []Operator{OpContains},
		ValueType:        Text,
		AllowMultiSelect: true,
	},
	{
		Name:          FieldEnvironment,
		Label:         "Environment",
		Operators:     membership,
		ValueType:     Enum,
		EnumValues:    []string{"production", "staging", "development"},
		AllowNegation: true,
		IsSingleValue: true,
	},
	{
		Name:          FieldAttempt,
		Label:         "Attempt",
		Operators:     numeric,
		ValueType:     Number,
		IsSingleValue: true,
	},
}

var defaultSchema = MustNew(DefaultRules...)

// Default returns the built-in schema.
func Default() *Schema {
	return defaultSchema
}
