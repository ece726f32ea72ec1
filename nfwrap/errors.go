package nfwrap

import "fmt"

// ConfigurationError means the wrapper cannot start a run as configured:
// a missing execution token, or a value that does not fit its parameter type.
type ConfigurationError struct {
	err     error
	context string
}

func (e *ConfigurationError) Error() string {
	return e.context + ": " + e.err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.err }

func configErrorf(context string, f string, v ...interface{}) error {
	return &ConfigurationError{fmt.Errorf(f, v...), context}
}

// ProvisioningError is returned when the storage volume could not be obtained.
// StatusCode is zero when no response was received.
type ProvisioningError struct {
	StatusCode int
	err        error
}

func (e *ProvisioningError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to provision storage (status %d): %v", e.StatusCode, e.err)
	}
	return "failed to provision storage: " + e.err.Error()
}

func (e *ProvisioningError) Unwrap() error { return e.err }

// EngineExecutionError is returned when the engine could not be run
// or exited with a non-zero status. ExitCode is -1 when the process never exited normally.
type EngineExecutionError struct {
	ExitCode int
	err      error
}

func (e *EngineExecutionError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("engine exited with code %d: %v", e.ExitCode, e.err)
	}
	return "engine failed: " + e.err.Error()
}

func (e *EngineExecutionError) Unwrap() error { return e.err }

// LogDeliveryWarning records a log that could not be delivered.
// It is never returned as the outcome of a run.
type LogDeliveryWarning struct {
	Artifact string
	err      error
}

func (w *LogDeliveryWarning) Error() string {
	return fmt.Sprintf("failed to deliver %v: %v", w.Artifact, w.err)
}

func (w *LogDeliveryWarning) Unwrap() error { return w.err }
