package sweep

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/test"
	"github.com/callsense/callsense/internal/pkg/test/mocks"
)

var (
	dbMock     *mocks.DB
	senderMock *mocks.Sender
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	senderMock = &mocks.Sender{}
	srvData = &ServiceData{DB: dbMock, MsgSender: senderMock, Interval: time.Minute, MaxAge: time.Minute * 30}
	dbMock.On("LoadStuck", mock.Anything, mock.Anything).Return(
		[]persistence.Call{{ID: "c1", Status: "transcribing"}, {ID: "c2", Status: "analyzing"}}, nil)
	dbMock.On("MarkFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func Test_doSweep(t *testing.T) {
	initTest(t)
	err := doSweep(test.Ctx(t), srvData)
	assert.Nil(t, err)
	require.Equal(t, 3, len(dbMock.Calls))
	assert.Equal(t, srvData.MaxAge, dbMock.Calls[0].Arguments[1])
	assert.Equal(t, "c1", dbMock.Calls[1].Arguments[1])
	assert.Equal(t, failReason, dbMock.Calls[1].Arguments[2])
	assert.Equal(t, "c2", dbMock.Calls[2].Arguments[1])
	require.Equal(t, 2, len(senderMock.Calls))
	msg := senderMock.Calls[0].Arguments[1].(*messages.StatusMessage)
	assert.Equal(t, "c1", msg.ID)
	assert.Equal(t, "failed", msg.Status)
	assert.Equal(t, messages.StatusChange, senderMock.Calls[0].Arguments[2])
}

func Test_doSweep_Empty(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadStuck", mock.Anything, mock.Anything).Return([]persistence.Call{}, nil)
	err := doSweep(test.Ctx(t), srvData)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_doSweep_LoadFails(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadStuck", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia err"))
	err := doSweep(test.Ctx(t), srvData)
	assert.NotNil(t, err)
}

func Test_doSweep_MarkFails_Continues(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadStuck", mock.Anything, mock.Anything).Return(
		[]persistence.Call{{ID: "c1"}, {ID: "c2"}}, nil)
	dbMock.On("MarkFailed", mock.Anything, "c1", mock.Anything).Return(fmt.Errorf("olia err"))
	dbMock.On("MarkFailed", mock.Anything, "c2", mock.Anything).Return(nil)
	err := doSweep(test.Ctx(t), srvData)
	assert.Nil(t, err)
	require.Equal(t, 1, len(senderMock.Calls))
	msg := senderMock.Calls[0].Arguments[1].(*messages.StatusMessage)
	assert.Equal(t, "c2", msg.ID)
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		data    *ServiceData
		wantErr bool
	}{
		{name: "OK", data: &ServiceData{DB: dbMock, MsgSender: senderMock, Interval: time.Minute, MaxAge: time.Hour}, wantErr: false},
		{name: "no DB", data: &ServiceData{MsgSender: senderMock, Interval: time.Minute, MaxAge: time.Hour}, wantErr: true},
		{name: "no sender", data: &ServiceData{DB: dbMock, Interval: time.Minute, MaxAge: time.Hour}, wantErr: true},
		{name: "no interval", data: &ServiceData{DB: dbMock, MsgSender: senderMock, MaxAge: time.Hour}, wantErr: true},
		{name: "no max age", data: &ServiceData{DB: dbMock, MsgSender: senderMock, Interval: time.Minute}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
