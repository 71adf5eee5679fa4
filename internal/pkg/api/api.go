package api

import "github.com/callsense/callsense/internal/pkg/persistence"

// form parameter names of the upload endpoint
const (
	// PrmFile is the audio form file parameter
	PrmFile = "file"
	// PrmEmail - optional contact for the finish notification
	PrmEmail = "email"
)

// Envelope is the JSON response wrapper of the public endpoints
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// UploadResult is returned by the upload endpoint
type UploadResult struct {
	ID string `json:"id"`
}

// Report is returned by the report endpoint
type Report struct {
	ID     string `json:"id"`
	Report string `json:"report"`
}

// ProcessResult is returned by the synchronous process endpoint:
// the status fields plus the produced documents
type ProcessResult struct {
	ID         string                  `json:"id"`
	Status     string                  `json:"status"`
	Processed  string                  `json:"processedAt,omitempty"`
	Transcript *persistence.Transcript `json:"transcript,omitempty"`
	Analysis   *persistence.Analysis   `json:"analysis,omitempty"`
}

// CallStatus is returned by the status endpoint
type CallStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Created   string `json:"createdAt,omitempty"`
	Processed string `json:"processedAt,omitempty"`
}
