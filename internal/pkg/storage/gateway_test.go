package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type loaderMock struct{ mock.Mock }

func (m *loaderMock) LoadFile(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func TestFetch_Local(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("audio"), 0644))
	g, err := NewGateway(Options{LocalPrefix: "local/", LocalRoot: dir})
	require.Nil(t, err)
	res, err := g.Fetch(context.Background(), "local/a.mp3")
	require.Nil(t, err)
	assert.Equal(t, []byte("audio"), res)
}

func TestFetch_Local_NoFallback(t *testing.T) {
	lm := &loaderMock{}
	g, err := NewGateway(Options{LocalPrefix: "local/", LocalRoot: t.TempDir(), Loader: lm})
	require.Nil(t, err)
	_, err = g.Fetch(context.Background(), "local/missing.mp3")
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(lm.Calls))
}

func TestFetch_ObjectStore(t *testing.T) {
	lm := &loaderMock{}
	lm.On("LoadFile", mock.Anything, "orgs/o1/calls/c1.mp3").Return([]byte("data"), nil)
	g, err := NewGateway(Options{Loader: lm})
	require.Nil(t, err)
	res, err := g.Fetch(context.Background(), "orgs/o1/calls/c1.mp3")
	require.Nil(t, err)
	assert.Equal(t, []byte("data"), res)
}

func TestFetch_FallsBackToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("from url"))
	}))
	defer srv.Close()
	lm := &loaderMock{}
	lm.On("LoadFile", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("store unreachable"))
	g, err := NewGateway(Options{Loader: lm})
	require.Nil(t, err)
	res, err := g.Fetch(context.Background(), srv.URL+"/rec.mp3")
	require.Nil(t, err)
	assert.Equal(t, []byte("from url"), res)
	assert.Equal(t, 1, len(lm.Calls))
}

func TestFetch_AllFail(t *testing.T) {
	lm := &loaderMock{}
	lm.On("LoadFile", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("store unreachable"))
	g, err := NewGateway(Options{Loader: lm})
	require.Nil(t, err)
	_, err = g.Fetch(context.Background(), "orgs/o1/calls/c1.mp3")
	assert.NotNil(t, err)
}

func TestFetch_URLErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	g, err := NewGateway(Options{})
	require.Nil(t, err)
	_, err = g.Fetch(context.Background(), srv.URL+"/rec.mp3")
	assert.NotNil(t, err)
}

func TestFetch_Empty(t *testing.T) {
	g, err := NewGateway(Options{})
	require.Nil(t, err)
	_, err = g.Fetch(context.Background(), "")
	assert.NotNil(t, err)
}
