package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/status"
	"github.com/callsense/callsense/internal/pkg/test"
	"github.com/callsense/callsense/internal/pkg/test/mocks"
)

func TestStatusChanged(t *testing.T) {
	senderMock := &mocks.Sender{}
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s := NewQueueEventSender(senderMock)
	s.StatusChanged(test.Ctx(t), "c1", status.Analyzing)
	require.Equal(t, 1, len(senderMock.Calls))
	msg := senderMock.Calls[0].Arguments[1].(*messages.StatusMessage)
	assert.Equal(t, "c1", msg.ID)
	assert.Equal(t, "analyzing", msg.Status)
	assert.Equal(t, messages.StatusChange, senderMock.Calls[0].Arguments[2])
}

func TestStatusChanged_SendFails(t *testing.T) {
	senderMock := &mocks.Sender{}
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia err"))
	s := NewQueueEventSender(senderMock)
	s.StatusChanged(test.Ctx(t), "c1", status.Failed)
}
