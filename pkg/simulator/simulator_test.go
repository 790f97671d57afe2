package simulator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mower-backend/pkg/config"
	"mower-backend/pkg/logger"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	cfg := config.DefaultSimulatorConfig()
	cfg.MachineID = "test-machine"
	cfg.Runtime.MowingDuration = 2 * time.Second
	log := logger.NewLogger(false)
	return New(cfg, log.GetLogger("simulator"))
}

func TestMachineStateMachine(t *testing.T) {
	t.Run("Mowing Countdown Finishes Field", func(t *testing.T) {
		m := newTestMachine(t)
		m.StartMowing("task-1", "queue-1")
		assert.Equal(t, StateMowing, m.Status().State)

		m.tick()
		assert.Equal(t, StateMowing, m.Status().State)
		assert.Equal(t, 1, m.Status().ETASeconds)

		m.tick()
		status := m.Status()
		assert.Equal(t, StateIdle, status.State)
		assert.Empty(t, status.CurrentField)

		// The finished field is reported until reassignment.
		assert.Equal(t, "task-1", m.previousField)
	})

	t.Run("Pause Freezes The Countdown", func(t *testing.T) {
		m := newTestMachine(t)
		m.StartMowing("task-1", "queue-1")
		m.Pause()

		m.tick()
		m.tick()
		assert.Equal(t, StatePaused, m.Status().State)
		assert.Equal(t, "task-1", m.Status().CurrentField)

		m.Resume()
		assert.Equal(t, StateMowing, m.Status().State)
	})

	t.Run("Resume Without Field Idles", func(t *testing.T) {
		m := newTestMachine(t)
		m.Resume()
		assert.Equal(t, StateIdle, m.Status().State)
	})

	t.Run("Stop Clears Everything", func(t *testing.T) {
		m := newTestMachine(t)
		m.StartMowing("task-1", "queue-1")
		m.StopMowing()

		status := m.Status()
		assert.Equal(t, StateIdle, status.State)
		assert.Empty(t, status.CurrentField)
	})

	t.Run("Update Current Field Switches Or Idles", func(t *testing.T) {
		m := newTestMachine(t)
		m.StartMowing("task-1", "queue-1")
		m.tick()

		m.UpdateCurrentField("task-2")
		status := m.Status()
		assert.Equal(t, StateMowing, status.State)
		assert.Equal(t, "task-2", status.CurrentField)
		assert.Equal(t, 2, status.ETASeconds)

		m.UpdateCurrentField("")
		assert.Equal(t, StateIdle, m.Status().State)
	})
}

func TestCommandServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMachine(t)
	log := logger.NewLogger(false)
	router := NewRouter(m, log.GetLogger("simulator"))

	post := func(t *testing.T, body any) *httptest.ResponseRecorder {
		t.Helper()
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Start Mowing Command", func(t *testing.T) {
		w := post(t, gin.H{"command": "start_mowing", "field_id": "task-1", "queue_id": "queue-1"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StateMowing, m.Status().State)
		assert.Equal(t, "task-1", m.Status().CurrentField)
	})

	t.Run("Pause And Resume Commands", func(t *testing.T) {
		w := post(t, gin.H{"command": "pause"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StatePaused, m.Status().State)

		w = post(t, gin.H{"command": "resume"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StateMowing, m.Status().State)
	})

	t.Run("Stop Command", func(t *testing.T) {
		w := post(t, gin.H{"command": "stop"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StateIdle, m.Status().State)
	})

	t.Run("Unknown Command", func(t *testing.T) {
		w := post(t, gin.H{"command": "self_destruct"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing Command", func(t *testing.T) {
		w := post(t, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Status Endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data Status `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "test-machine", envelope.Data.MachineID)
	})
}
