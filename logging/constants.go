package logging

const (
	infoLogLevel    = "INFO"
	warningLogLevel = "WARNING"
	errorLogLevel   = "ERROR"

	notStarted = "not-started"
	running    = "running"
	failed     = "failed"
	completed  = "completed"
)
