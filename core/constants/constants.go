package constants

// Context keys
const (
	ContextTokenData = "token_data"
	ContextRequestID = "request_id"
)

// Database defaults
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Events view defaults
const (
	// DefaultHorizonDays is how far ahead of "now" the rolling
	// materialization window is kept when a tenant has no view row yet.
	DefaultHorizonDays = 90

	// DefaultExtendCron drives the periodic horizon-extension job.
	DefaultExtendCron = "0 2 * * *"
)

// Recurrence rule bounds
const (
	RuleIntervalMin = 1
	RuleIntervalMax = 4
)

// Worker queue and task names
const (
	QueueDefault = "default"

	TaskEventsViewExtend = "eventsview:extend"
	TaskEventMaterialize = "event:materialize"
)
