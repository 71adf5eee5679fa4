package messages

import "time"

const (
	st = "CALLSENSE/"
	// Process queue name - pipeline jobs
	Process = st + "Process"
	// StatusChange queue name - status push events for subscribers
	StatusChange = st + "StatusChange"
	// Inform queue name - finish notifications
	Inform = st + "Inform"
)

// inform types
const (
	// InformCompleted - the call analysis finished successfully
	InformCompleted = "completed"
	// InformFailed - the pipeline gave up on the call
	InformFailed = "failed"
)

// ProcessMessage asks the worker to run the pipeline for a call
type ProcessMessage struct {
	ID string `json:"id"`
}

// StatusMessage announces a persisted status change
type StatusMessage struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// InformMessage asks the inform worker to notify about a finished call
type InformMessage struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}
