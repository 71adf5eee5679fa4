package webservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/callsense/callsense/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var wsKeeper *WSConnKeeper

func initWSTest(t *testing.T) {
	wsKeeper = NewWSConnKeeper()
}

type mockWSConn struct{ mock.Mock }

func (m *mockWSConn) ReadMessage() (int, []byte, error) {
	args := m.Called()
	return args.Int(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockWSConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockWSConn) WriteJSON(v interface{}) error {
	args := m.Called(v)
	return args.Error(0)
}

func createTestConn(t *testing.T, id string, closeChan <-chan struct{}) *mockWSConn {
	t.Helper()
	connMock := &mockWSConn{}
	connMock.On("WriteJSON", mock.Anything).Return(nil)
	connMock.On("ReadMessage").Return(1, []byte(id), nil).Once()
	connMock.On("ReadMessage").Return(1, []byte(id), fmt.Errorf("err")).Run(func(args mock.Arguments) {
		<-closeChan
	})
	connMock.On("Close").Return(nil)
	return connMock
}

func Test_HandleConnection(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	go func() {
		err := wsKeeper.HandleConnection(createTestConn(t, "1", closeCtx.Done()))
		assert.Nil(t, err)
	}()
	testHas(t, "1", 1)
	cf()
}

func Test_HandleConnection_Several(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	for i := 0; i < 3; i++ {
		go func() {
			_ = wsKeeper.HandleConnection(createTestConn(t, "1", closeCtx.Done()))
		}()
	}
	testHas(t, "1", 3)
}

func Test_HandleConnection_Drops(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	done := make(chan struct{})
	go func() {
		_ = wsKeeper.HandleConnection(createTestConn(t, "1", closeCtx.Done()))
		close(done)
	}()
	testHas(t, "1", 1)
	cf()
	<-done
	testHas(t, "1", 0)
}

func Test_GetConnections_Empty(t *testing.T) {
	initWSTest(t)
	res, ok := wsKeeper.GetConnections("olia")
	assert.False(t, ok)
	assert.Nil(t, res)
}

func testHas(t *testing.T, s string, i int) {
	t.Helper()
	ctx := test.Ctx(t)
	for {
		cn, ok := wsKeeper.GetConnections(s)
		if ok == (i > 0) && len(cn) == i {
			break
		}
		select {
		case <-ctx.Done():
			require.Failf(t, "timeout", "not found connection %s", s)
		case <-time.After(time.Millisecond * 100):
		}
	}
}
