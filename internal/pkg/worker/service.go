package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vgarvardt/gue/v5"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/pipeline"
	"github.com/callsense/callsense/internal/pkg/utils"
	"github.com/callsense/callsense/internal/pkg/utils/handler"
)

// Runner invokes the processing pipeline
type Runner interface {
	Process(ctx context.Context, callID string) (*pipeline.Outcome, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Pipeline    Runner
	MsgSender   MsgSender
	Timeout     time.Duration
	Testing     bool
}

// StartWorkerService starts the event queue listener running pipeline jobs.
// Returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		log.Warn().Msg("SERVICE IN TEST MODE")
	}
	timeout := data.Timeout
	if timeout == 0 {
		timeout = time.Minute * 20
	}

	wm := gue.WorkMap{
		messages.Process: handler.Create(data, handleProcess,
			handler.DefaultOpts[messages.ProcessMessage]().
				WithFailure(processFailure(data)).
				WithTimeout(timeout).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Process),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("callsense-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("can't build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			log.Error().Err(err).Msg("pool error")
		}
		log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleProcess(ctx context.Context, m *messages.ProcessMessage, data *ServiceData) error {
	log.Info().Str("ID", m.ID).Msg("handling process job")
	if _, err := data.Pipeline.Process(ctx, m.ID); err != nil {
		return err
	}
	if err := data.MsgSender.SendMessage(ctx, &messages.InformMessage{ID: m.ID,
		Type: messages.InformCompleted, At: time.Now()}, messages.Inform); err != nil {
		log.Error().Err(err).Str("ID", m.ID).Msg("can't send inform msg")
	}
	return nil
}

// processFailure drops jobs that already reached a terminal decision
// and retries only infrastructure failures
func processFailure(data *ServiceData) func(context.Context, *messages.ProcessMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.ProcessMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if errors.Is(err, pipeline.ErrNotFound) {
			return false, 0, nil
		}
		var isErr *pipeline.InvalidStateError
		if errors.As(err, &isErr) {
			return false, 0, nil
		}
		var stErr *pipeline.StageError
		if errors.As(err, &stErr) {
			// failure is persisted, inform and drop
			if errS := data.MsgSender.SendMessage(ctx, &messages.InformMessage{ID: m.ID,
				Type: messages.InformFailed, At: time.Now()}, messages.Inform); errS != nil {
				log.Error().Err(errS).Str("ID", m.ID).Msg("can't send inform msg")
			}
			return false, 0, nil
		}
		if j.ErrorCount > 3 {
			log.Info().Str("ID", m.ID).Int32("errCount", j.ErrorCount).Msg("skip retry")
			return false, 0, nil
		}
		return true, 0, nil
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Pipeline == nil {
		return fmt.Errorf("no pipeline")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}
