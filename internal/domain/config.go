package domain

// KeyPrefix namespaces all keys this service writes to the shared store.
const KeyPrefix = "ragcore:"

// Default retrieval and conversation parameters.
const (
	DefaultTopK        = 10
	DefaultMinScore    = 0.6
	DefaultWindowSize  = 10
	DefaultTemperature = 0.2
)
