package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/status"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg interface{}, queue string) error
}

// QueueEventSender publishes status changes to the status change queue
type QueueEventSender struct {
	sender MsgSender
}

// NewQueueEventSender creates the sender
func NewQueueEventSender(sender MsgSender) *QueueEventSender {
	return &QueueEventSender{sender: sender}
}

// StatusChanged sends the event, failures are logged only
func (s *QueueEventSender) StatusChanged(ctx context.Context, id string, st status.Status) {
	if err := s.sender.SendMessage(ctx, &messages.StatusMessage{ID: id, Status: st.String()},
		messages.StatusChange); err != nil {
		log.Error().Err(err).Str("ID", id).Msg("can't send status msg")
	}
}
