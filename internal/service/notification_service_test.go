package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/crisis-service/internal/events"
)

func TestNotificationServiceDeliversWebhook(t *testing.T) {
	received := make(chan events.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var event events.Event
		require.NoError(t, json.Unmarshal(body, &event))
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(server.URL, nil).Register(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:          "evt-1",
		Type:        events.EventCrisisDetected,
		CrisisID:    "crisis-1",
		WorkspaceID: testWorkspace,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, events.EventCrisisDetected, event.Type)
		assert.Equal(t, "crisis-1", event.CrisisID)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestNotificationServiceWithoutWebhookOnlyLogs(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService("", nil).Register(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:   "evt-1",
		Type: events.EventCrisisStatusChanged,
	})
	assert.NoError(t, err)
}
