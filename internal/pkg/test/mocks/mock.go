package mocks

import (
	"context"
	"io"
	"time"

	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/status"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/mock"
)

// DB is call store mock
type DB struct{ mock.Mock }

func (m *DB) InsertCall(ctx context.Context, call *persistence.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *DB) LoadCall(ctx context.Context, id string) (*persistence.Call, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Call](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateStatus(ctx context.Context, id string, st status.Status) error {
	args := m.Called(ctx, id, st)
	return args.Error(0)
}

func (m *DB) SaveTranscript(ctx context.Context, id string, tr *persistence.Transcript) error {
	args := m.Called(ctx, id, tr)
	return args.Error(0)
}

func (m *DB) SaveAnalysis(ctx context.Context, id string, als *persistence.Analysis, processed time.Time) error {
	args := m.Called(ctx, id, als, processed)
	return args.Error(0)
}

func (m *DB) MarkFailed(ctx context.Context, id, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *DB) LoadStuck(ctx context.Context, olderThan time.Duration) ([]persistence.Call, error) {
	args := m.Called(ctx, olderThan)
	return to[[]persistence.Call](args.Get(0)), args.Error(1)
}

// OrgDB is organization store mock
type OrgDB struct{ mock.Mock }

func (m *OrgDB) LoadOrganization(ctx context.Context, id string) (*persistence.Organization, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Organization](args.Get(0)), args.Error(1)
}

func (m *OrgDB) IncrementMonthlyCalls(ctx context.Context, orgID string) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	args := m.Called(ctx, name, r, size)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	return to[[]byte](args.Get(0)), args.Error(1)
}

// Fetcher is storage gateway mock
type Fetcher struct{ mock.Mock }

func (m *Fetcher) Fetch(ctx context.Context, reference string) ([]byte, error) {
	args := m.Called(ctx, reference)
	return to[[]byte](args.Get(0)), args.Error(1)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audio []byte) (*persistence.Transcript, error) {
	args := m.Called(ctx, audio)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

// Analyzer is LLM client mock
type Analyzer struct{ mock.Mock }

func (m *Analyzer) Analyze(ctx context.Context, text string, segments []persistence.Segment) (*persistence.Analysis, error) {
	args := m.Called(ctx, text, segments)
	return to[*persistence.Analysis](args.Get(0)), args.Error(1)
}

func (m *Analyzer) GenerateReport(ctx context.Context, text string, als *persistence.Analysis) (string, error) {
	args := m.Called(ctx, text, als)
	return args.String(0), args.Error(1)
}

// Sender is queue msg sender mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg interface{}, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// EventSender is status event mock
type EventSender struct{ mock.Mock }

func (m *EventSender) StatusChanged(ctx context.Context, id string, st status.Status) {
	m.Called(ctx, id, st)
}

// EmailMaker is email prepare mock
type EmailMaker struct{ mock.Mock }

func (m *EmailMaker) Make(call *persistence.Call, msgType string, at time.Time) (*email.Email, error) {
	args := m.Called(call, msgType, at)
	return to[*email.Email](args.Get(0)), args.Error(1)
}

// EmailSender is email send mock
type EmailSender struct{ mock.Mock }

func (m *EmailSender) Send(e *email.Email) error {
	args := m.Called(e)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
