package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_NotifyListenError(t *testing.T) {
	srv := New("127.0.0.1:-1", time.Second, time.Second, http.NotFoundHandler())
	srv.Start()

	select {
	case err := <-srv.Notify():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen error was not reported")
	}
}

func TestServer_ShutdownClosesNotify(t *testing.T) {
	srv := New("127.0.0.1:0", time.Second, time.Second, http.NotFoundHandler())
	srv.Start()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, srv.Shutdown())

	select {
	case err, ok := <-srv.Notify():
		assert.False(t, ok, "unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("notify channel was not closed")
	}
}
