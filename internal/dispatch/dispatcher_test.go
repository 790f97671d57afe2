package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mower-backend/pkg/logger"
)

func TestHTTPDispatcher(t *testing.T) {
	ctx := context.Background()
	log := logger.NewLogger(false)

	t.Run("Delivers Command", func(t *testing.T) {
		received := make(chan Command, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cmd Command
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))
			received <- cmd
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		d := NewHTTPDispatcher(server.URL, time.Second, log)
		d.Send(ctx, Command{
			Command: CommandStartMowing,
			FieldID: "task-1",
			QueueID: "queue-1",
		})

		select {
		case cmd := <-received:
			assert.Equal(t, CommandStartMowing, cmd.Command)
			assert.Equal(t, "task-1", cmd.FieldID)
			assert.Equal(t, "queue-1", cmd.QueueID)
		case <-time.After(time.Second):
			t.Fatal("command never arrived")
		}
	})

	t.Run("Swallows Delivery Failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		d := NewHTTPDispatcher(server.URL, time.Second, log)
		// Must not panic or block; delivery is best-effort.
		d.Send(ctx, Command{Command: CommandPause, QueueID: "queue-1"})
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Send(context.Background(), Command{Command: CommandStop, QueueID: "q"})

	commands := r.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, CommandStop, commands[0].Command)

	// The returned slice is a copy.
	commands[0].Command = CommandPause
	assert.Equal(t, CommandStop, r.Commands()[0].Command)
}
