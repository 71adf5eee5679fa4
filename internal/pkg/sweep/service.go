package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/status"
)

const failReason = "processing timed out"

// DB finds and fails abandoned calls
type DB interface {
	LoadStuck(ctx context.Context, olderThan time.Duration) ([]persistence.Call, error)
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	DB        DB
	MsgSender MsgSender
	Interval  time.Duration
	MaxAge    time.Duration
}

// StartService runs the periodic stuck call reconciliation.
// Calls sitting in a non-terminal status longer than MaxAge are
// marked failed so clients are not left polling forever.
// Returns channel closed when the loop exits
func StartService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	log.Info().Dur("interval", data.Interval).Dur("maxAge", data.MaxAge).Msg("Starting sweep service")
	res := make(chan struct{})
	go func() {
		defer close(res)
		ticker := time.NewTicker(data.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Sweep service stopped")
				return
			case <-ticker.C:
				if err := doSweep(ctx, data); err != nil {
					log.Error().Err(err).Msg("sweep failed")
				}
			}
		}
	}()
	return res, nil
}

func doSweep(ctx context.Context, data *ServiceData) error {
	calls, err := data.DB.LoadStuck(ctx, data.MaxAge)
	if err != nil {
		return fmt.Errorf("can't load stuck calls: %w", err)
	}
	for i := range calls {
		c := &calls[i]
		log.Warn().Str("ID", c.ID).Str("status", c.Status).Time("updated", c.Updated).Msg("stuck call")
		if err := data.DB.MarkFailed(ctx, c.ID, failReason); err != nil {
			log.Error().Err(err).Str("ID", c.ID).Msg("can't mark failed")
			continue
		}
		if err := data.MsgSender.SendMessage(ctx, &messages.StatusMessage{ID: c.ID,
			Status: status.Failed.String()}, messages.StatusChange); err != nil {
			log.Error().Err(err).Str("ID", c.ID).Msg("can't send status msg")
		}
	}
	if len(calls) > 0 {
		log.Info().Int("count", len(calls)).Msg("swept stuck calls")
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.Interval <= 0 {
		return fmt.Errorf("no interval")
	}
	if data.MaxAge <= 0 {
		return fmt.Errorf("no max age")
	}
	return nil
}
