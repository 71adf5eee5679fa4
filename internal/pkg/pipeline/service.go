package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/status"
	"github.com/rs/zerolog/log"
)

// DB provides call persistence
type DB interface {
	LoadCall(ctx context.Context, id string) (*persistence.Call, error)
	UpdateStatus(ctx context.Context, id string, st status.Status) error
	SaveTranscript(ctx context.Context, id string, tr *persistence.Transcript) error
	SaveAnalysis(ctx context.Context, id string, als *persistence.Analysis, processed time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// OrgDB provides tenant usage accounting
type OrgDB interface {
	IncrementMonthlyCalls(ctx context.Context, orgID string) error
}

// Fetcher retrieves audio bytes by reference
type Fetcher interface {
	Fetch(ctx context.Context, reference string) ([]byte, error)
}

// Transcriber provides speech-to-text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*persistence.Transcript, error)
}

// Analyzer provides LLM analysis of a transcript
type Analyzer interface {
	Analyze(ctx context.Context, text string, segments []persistence.Segment) (*persistence.Analysis, error)
}

// EventSender announces persisted status changes, e.g. to websocket subscribers
type EventSender interface {
	StatusChanged(ctx context.Context, id string, st status.Status)
}

// ServiceData keeps collaborators required for the pipeline work
type ServiceData struct {
	DB          DB
	Orgs        OrgDB
	Fetcher     Fetcher
	Transcriber Transcriber
	Analyzer    Analyzer
	Events      EventSender // optional
}

// Service drives one call through the processing pipeline
type Service struct {
	data ServiceData
}

// NewService validates collaborators and creates the pipeline service
func NewService(data ServiceData) (*Service, error) {
	if data.DB == nil {
		return nil, fmt.Errorf("no DB")
	}
	if data.Orgs == nil {
		return nil, fmt.Errorf("no Orgs")
	}
	if data.Fetcher == nil {
		return nil, fmt.Errorf("no Fetcher")
	}
	if data.Transcriber == nil {
		return nil, fmt.Errorf("no Transcriber")
	}
	if data.Analyzer == nil {
		return nil, fmt.Errorf("no Analyzer")
	}
	return &Service{data: data}, nil
}

// Outcome is the result of a completed pipeline run
type Outcome struct {
	Transcript *persistence.Transcript
	Analysis   *persistence.Analysis
	Processed  time.Time
}

// Process runs the whole pipeline for the call: fetch audio, transcribe,
// analyze, account usage. Stages run strictly in sequence, each status
// transition is persisted before the next stage starts. The first stage
// failure abandons the rest and leaves the call in the failed status.
// There are no retries - a rerun is an external decision and repeats
// everything from the audio fetch, overwriting the old transcript.
func (s *Service) Process(ctx context.Context, callID string) (*Outcome, error) {
	log.Info().Str("ID", callID).Msg("process call")
	call, err := s.data.DB.LoadCall(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("can't load call: %w", err)
	}
	if call == nil {
		return nil, ErrNotFound
	}
	if call.AudioReference == "" {
		return nil, &InvalidStateError{Reason: "no audio uploaded"}
	}
	// a call that completed before was already counted
	counted := call.Processed != nil

	if err := s.setStatus(ctx, call.ID, status.Processing); err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, call.ID, status.Transcribing); err != nil {
		return nil, err
	}

	audio, err := s.data.Fetcher.Fetch(ctx, call.AudioReference)
	if err != nil {
		return nil, s.fail(ctx, call.ID, &StageError{Stage: StageStorage, Err: err})
	}
	log.Info().Str("ID", call.ID).Int("bytes", len(audio)).Msg("audio fetched")

	tr, err := s.data.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, s.fail(ctx, call.ID, &StageError{Stage: StageTranscription, Err: err})
	}
	if err := s.data.DB.SaveTranscript(ctx, call.ID, tr); err != nil {
		return nil, fmt.Errorf("can't save transcript: %w", err)
	}
	s.notify(ctx, call.ID, status.Analyzing)
	log.Info().Str("ID", call.ID).Int("segments", len(tr.Segments)).Msg("transcribed")

	als, err := s.data.Analyzer.Analyze(ctx, tr.Text, tr.Segments)
	if err != nil {
		return nil, s.fail(ctx, call.ID, &StageError{Stage: StageAnalysis, Err: err})
	}
	now := time.Now()
	if err := s.data.DB.SaveAnalysis(ctx, call.ID, als, now); err != nil {
		return nil, fmt.Errorf("can't save analysis: %w", err)
	}
	s.notify(ctx, call.ID, status.Completed)
	log.Info().Str("ID", call.ID).Msg("analysis completed")

	// best effort - a failed increment must not roll back the completed call
	if counted {
		log.Info().Str("ID", call.ID).Msg("rerun, usage already counted")
	} else if err := s.data.Orgs.IncrementMonthlyCalls(ctx, call.OrganizationID); err != nil {
		log.Error().Err(err).Str("ID", call.ID).Str("orgID", call.OrganizationID).Msg("can't count usage")
	}
	return &Outcome{Transcript: tr, Analysis: als, Processed: now}, nil
}

func (s *Service) setStatus(ctx context.Context, id string, st status.Status) error {
	if err := s.data.DB.UpdateStatus(ctx, id, st); err != nil {
		return fmt.Errorf("can't update status: %w", err)
	}
	s.notify(ctx, id, st)
	return nil
}

// fail persists the terminal failed status with the reason and
// returns the original error to the caller
func (s *Service) fail(ctx context.Context, id string, err error) error {
	log.Warn().Err(err).Str("ID", id).Msg("pipeline failed")
	if errF := s.data.DB.MarkFailed(ctx, id, err.Error()); errF != nil {
		log.Error().Err(errF).Str("ID", id).Msg("can't persist failure")
	}
	s.notify(ctx, id, status.Failed)
	return err
}

func (s *Service) notify(ctx context.Context, id string, st status.Status) {
	if s.data.Events != nil {
		s.data.Events.StatusChanged(ctx, id, st)
	}
}
