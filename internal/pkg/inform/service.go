package inform

import (
	"context"
	"fmt"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
	"github.com/vgarvardt/gue/v5"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/utils"
	"github.com/callsense/callsense/internal/pkg/utils/handler"
)

// Sender send emails
type Sender interface {
	Send(email *email.Email) error
}

// EmailMaker prepares the email
type EmailMaker interface {
	Make(call *persistence.Call, msgType string, at time.Time) (*email.Email, error)
}

// DB loads the call for the notification
type DB interface {
	LoadCall(ctx context.Context, id string) (*persistence.Call, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	EmailSender Sender
	EmailMaker  EmailMaker
	DB          DB
	Location    *time.Location
}

// StartWorkerService starts the event queue listener sending the finish notifications.
// Returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	log.Info().Msg("Starting listen for inform messages")

	wm := gue.WorkMap{
		messages.Inform: handler.Create(data, handleInform,
			handler.DefaultOpts[messages.InformMessage]().WithTimeout(time.Second*30)),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Inform),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("callsense-inform"),
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

func handleInform(ctx context.Context, m *messages.InformMessage, data *ServiceData) error {
	log.Info().Str("ID", m.ID).Str("type", m.Type).Msg("handling inform")

	call, err := data.DB.LoadCall(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load call: %w", err)
	}
	if call == nil {
		return fmt.Errorf("no call %s", m.ID)
	}
	if call.Email == "" {
		log.Info().Str("ID", m.ID).Msg("no email, skip")
		return nil
	}

	mail, err := data.EmailMaker.Make(call, m.Type, toLocalTime(data, m.At))
	if err != nil {
		return fmt.Errorf("can't prepare email: %w", err)
	}
	if err := data.EmailSender.Send(mail); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.EmailMaker == nil {
		return fmt.Errorf("no EmailMaker")
	}
	if data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}
