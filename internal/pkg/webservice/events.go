package webservice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vgarvardt/gue/v5"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/utils"
	"github.com/callsense/callsense/internal/pkg/utils/handler"
)

// HandlerData keeps data required for the status event listener
type HandlerData struct {
	GueClient   *gue.Client
	WorkerCount int
	DB          DB
	WSHandler   WSConnHandler
}

// StartStatusHandler starts the event queue listener pushing status
// changes to websocket subscribers.
// Returns channel for tracking when all jobs are finished
func StartStatusHandler(ctx context.Context, data *HandlerData) (chan struct{}, error) {
	if err := validateHandler(data); err != nil {
		return nil, err
	}
	log.Info().Msg("Starting listen for status messages")

	wm := gue.WorkMap{
		messages.StatusChange: handler.Create(data, handleStatus,
			handler.DefaultOpts[messages.StatusMessage]().WithTimeout(time.Second*10)),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.StatusChange),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("callsense-status"),
	)
	if err != nil {
		return nil, fmt.Errorf("can't build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		log.Info().Msg("Starting status workers")
		if err := pool.Run(ctx); err != nil {
			log.Error().Err(err).Msg("pool error")
		}
		log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleStatus(ctx context.Context, m *messages.StatusMessage, data *HandlerData) error {
	log.Debug().Str("ID", m.ID).Str("status", m.Status).Msg("handling status change event")

	conns, found := data.WSHandler.GetConnections(m.ID)
	if !found {
		return nil
	}
	call, err := data.DB.LoadCall(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load call %s: %w", m.ID, err)
	}
	if call == nil {
		return fmt.Errorf("no call %s", m.ID)
	}
	res := mapStatus(call)
	for _, c := range conns {
		if err := c.WriteJSON(res); err != nil {
			log.Error().Err(err).Msg("can't write to websocket")
		}
	}
	return nil
}

func validateHandler(data *HandlerData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}
