package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookForwarder_PostsJSON(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err == nil {
			got.Store(n)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	f := NewWebhookForwarder(srv.URL, time.Second)
	f.Forward(context.Background(), Notification{ID: "n1", Type: TypeOrder, OrderID: "o1"})
	f.Wait()

	n, ok := got.Load().(Notification)
	require.True(t, ok)
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "o1", n.OrderID)
}

func TestWebhookForwarder_FailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close()

	f := NewWebhookForwarder(srv.URL, 100*time.Millisecond)
	f.Forward(context.Background(), Notification{ID: "n1"})
	f.Wait()
}
