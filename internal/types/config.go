package types

type RunMode string

const (
	// ModeLocal is the mode for running both the API server and the webhook worker locally
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeWorker is the mode for running just the webhook worker
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type PubSubType string

const (
	MemoryPubSub PubSubType = "memory"
)
