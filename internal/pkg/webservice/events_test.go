package webservice

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"

	"github.com/callsense/callsense/internal/pkg/api"
	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/test"
	"github.com/callsense/callsense/internal/pkg/test/mocks"
)

var (
	ehWSMock   *mockWSConnHandler
	ehConnMock *mockWSConn
	ehDBMock   *mocks.DB
	hndData    *HandlerData
)

func initHandlerTest(t *testing.T) {
	ehDBMock = &mocks.DB{}
	ehWSMock = &mockWSConnHandler{}
	ehConnMock = &mockWSConn{}
	hndData = &HandlerData{DB: ehDBMock, GueClient: &gue.Client{}, WorkerCount: 10, WSHandler: ehWSMock}
	ehWSMock.On("GetConnections", mock.Anything).Return([]WsConn{ehConnMock}, true)
	ehDBMock.On("LoadCall", mock.Anything, mock.Anything).Return(testCall(), nil)
	ehConnMock.On("WriteJSON", mock.Anything).Return(nil)
}

func Test_handleStatus_Event(t *testing.T) {
	initHandlerTest(t)
	err := handleStatus(test.Ctx(t), &messages.StatusMessage{ID: "c1", Status: "completed"}, hndData)
	assert.Nil(t, err)
	require.Equal(t, 1, len(ehConnMock.Calls))
	res := ehConnMock.Calls[0].Arguments[0].(api.CallStatus)
	assert.Equal(t, "c1", res.ID)
	assert.Equal(t, "completed", res.Status)
}

func Test_handleStatus_Event_NoConn(t *testing.T) {
	initHandlerTest(t)
	ehWSMock.ExpectedCalls = nil
	ehWSMock.On("GetConnections", mock.Anything).Return([]WsConn{}, false)
	err := handleStatus(test.Ctx(t), &messages.StatusMessage{ID: "c1"}, hndData)
	assert.Nil(t, err)
	require.Equal(t, 0, len(ehConnMock.Calls))
	ehDBMock.AssertNotCalled(t, "LoadCall", mock.Anything, mock.Anything)
}

func Test_handleStatus_Event_NoCall(t *testing.T) {
	initHandlerTest(t)
	ehDBMock.ExpectedCalls = nil
	ehDBMock.On("LoadCall", mock.Anything, mock.Anything).Return(nil, nil)
	err := handleStatus(test.Ctx(t), &messages.StatusMessage{ID: "c1"}, hndData)
	assert.NotNil(t, err)
}

func Test_handleStatus_Event_DBFails(t *testing.T) {
	initHandlerTest(t)
	ehDBMock.ExpectedCalls = nil
	ehDBMock.On("LoadCall", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia"))
	err := handleStatus(test.Ctx(t), &messages.StatusMessage{ID: "c1"}, hndData)
	assert.NotNil(t, err)
}

func Test_handleStatus_Event_WriteFails(t *testing.T) {
	initHandlerTest(t)
	ehConnMock.ExpectedCalls = nil
	ehConnMock.On("WriteJSON", mock.Anything).Return(fmt.Errorf("gone"))
	err := handleStatus(test.Ctx(t), &messages.StatusMessage{ID: "c1"}, hndData)
	assert.Nil(t, err)
}

func Test_validateHandler(t *testing.T) {
	initHandlerTest(t)
	tests := []struct {
		name    string
		data    *HandlerData
		wantErr bool
	}{
		{name: "OK", data: &HandlerData{DB: ehDBMock, GueClient: &gue.Client{}, WorkerCount: 10, WSHandler: ehWSMock}, wantErr: false},
		{name: "no DB", data: &HandlerData{GueClient: &gue.Client{}, WorkerCount: 10, WSHandler: ehWSMock}, wantErr: true},
		{name: "no gue", data: &HandlerData{DB: ehDBMock, WorkerCount: 10, WSHandler: ehWSMock}, wantErr: true},
		{name: "no count", data: &HandlerData{DB: ehDBMock, GueClient: &gue.Client{}, WSHandler: ehWSMock}, wantErr: true},
		{name: "no ws", data: &HandlerData{DB: ehDBMock, GueClient: &gue.Client{}, WorkerCount: 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateHandler(tt.data); (err != nil) != tt.wantErr {
				t.Errorf("validateHandler() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
