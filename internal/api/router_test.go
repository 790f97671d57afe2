package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mower-backend/internal/api/handlers"
	"mower-backend/internal/dispatch"
	"mower-backend/internal/models"
	"mower-backend/internal/service"
	"mower-backend/internal/store/memory"
	"mower-backend/internal/store/types"
	"mower-backend/pkg/config"
	"mower-backend/pkg/logger"
)

type testServer struct {
	router   *gin.Engine
	store    types.Store
	recorder *dispatch.Recorder
}

func newTestServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultServerConfig()
	cfg.Auth.Enabled = authEnabled
	cfg.Auth.Secret = "test-secret"

	store := memory.NewStore()
	recorder := dispatch.NewRecorder()
	log := logger.NewLogger(false)

	machineService := service.NewMachineService(store, log)
	queueService := service.NewQueueService(store, recorder, log)
	statusService := service.NewStatusService(store, log)
	authService := service.NewAuthService(cfg, store, log)

	router := NewRouter(
		cfg,
		handlers.NewMachineHandler(machineService, log),
		handlers.NewQueueHandler(queueService, log),
		handlers.NewTelemetryHandler(queueService, log),
		handlers.NewStatusHandler(statusService, log),
		handlers.NewAuthHandler(authService, log),
		authService,
		log,
	)

	return &testServer{router: router, store: store, recorder: recorder}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	envelope := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func message(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var msg string
	require.NoError(t, json.Unmarshal(envelope["message"], &msg))
	return msg
}

func (s *testServer) createMachine(t *testing.T, name string) models.Machine {
	t.Helper()
	w, envelope := s.do(t, http.MethodPost, "/api/v1/machines", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code)
	var machine models.Machine
	require.NoError(t, json.Unmarshal(envelope["data"], &machine))
	return machine
}

func (s *testServer) createQueue(t *testing.T, machineID string, fieldIDs []int) models.Queue {
	t.Helper()
	path := fmt.Sprintf("/api/v1/machines/%s/queues", machineID)
	w, envelope := s.do(t, http.MethodPost, path, gin.H{"field_ids": fieldIDs})
	require.Equal(t, http.StatusCreated, w.Code)
	var queue models.Queue
	require.NoError(t, json.Unmarshal(envelope["data"], &queue))
	return queue
}

func TestMachineEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	t.Run("Create And Get", func(t *testing.T) {
		machine := s.createMachine(t, "Machine Walker")

		w, envelope := s.do(t, http.MethodGet, "/api/v1/machines/"+machine.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var got models.Machine
		require.NoError(t, json.Unmarshal(envelope["data"], &got))
		assert.Equal(t, "Machine Walker", got.Name)

		w, _ = s.do(t, http.MethodGet, "/api/v1/machines", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing Name", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodPost, "/api/v1/machines", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing machine name", message(t, envelope))
	})

	t.Run("Malformed Id Reads As Unknown", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodGet, "/api/v1/machines/not-a-uuid", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Machine not-a-uuid does not exist.", message(t, envelope))
	})

	t.Run("Delete", func(t *testing.T) {
		machine := s.createMachine(t, "Machine Mercer")
		w, _ := s.do(t, http.MethodDelete, "/api/v1/machines/"+machine.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w, _ = s.do(t, http.MethodGet, "/api/v1/machines/"+machine.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueueEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	machine := s.createMachine(t, "Machine Granger")
	machineID := machine.ID.String()

	queue := s.createQueue(t, machineID, []int{1, 2, 3})
	queueID := queue.ID.String()
	base := fmt.Sprintf("/api/v1/machines/%s/queues/%s", machineID, queueID)

	t.Run("Start", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodPost, base+"/start", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Queue started", message(t, envelope))

		commands := s.recorder.Commands()
		require.Len(t, commands, 1)
		assert.Equal(t, dispatch.CommandStartMowing, commands[0].Command)
	})

	t.Run("List Items", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodGet, base+"/items", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var items []models.Task
		require.NoError(t, json.Unmarshal(envelope["data"], &items))
		assert.Len(t, items, 3)
	})

	t.Run("Add Item", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, base+"/items", gin.H{"field_id": 9, "position": 1})
		assert.Equal(t, http.StatusCreated, w.Code)

		w, envelope := s.do(t, http.MethodPost, base+"/items", gin.H{"position": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing field id", message(t, envelope))

		w, _ = s.do(t, http.MethodPost, base+"/items", gin.H{"field_id": 9, "position": 99})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Remove Items", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodGet, base+"/items", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var items []models.Task
		require.NoError(t, json.Unmarshal(envelope["data"], &items))
		require.NotEmpty(t, items)

		last := items[len(items)-1]
		w, _ = s.do(t, http.MethodDelete, base+"/items", gin.H{"field_ids": []string{last.ID.String()}})
		assert.Equal(t, http.StatusOK, w.Code)

		w, _ = s.do(t, http.MethodDelete, base+"/items", gin.H{"field_ids": []string{"garbage"}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w, _ = s.do(t, http.MethodDelete, base+"/items", gin.H{"field_ids": []string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Skip Pause Resume Terminate", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodPost, base+"/skip", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, message(t, envelope), "Skipped field ")

		w, envelope = s.do(t, http.MethodPost, base+"/pause", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Queue paused", message(t, envelope))

		w, envelope = s.do(t, http.MethodPost, base+"/resume", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Queue resumed", message(t, envelope))

		w, envelope = s.do(t, http.MethodPost, base+"/terminate", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Queue terminated", message(t, envelope))
	})

	t.Run("Unknown Queue", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/machines/%s/queues/%s/start", machineID, "11111111-1111-1111-1111-111111111111")
		w, _ := s.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTelemetryEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	machine := s.createMachine(t, "Machine Lockhart")
	machineID := machine.ID.String()
	queue := s.createQueue(t, machineID, []int{1, 2})

	w, _ := s.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/machines/%s/queues/%s/start", machineID, queue.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	path := fmt.Sprintf("/api/v1/machines/%s/incoming_machine_telem", machineID)

	t.Run("Busy Machine Needs No Action", func(t *testing.T) {
		w, envelope := s.do(t, http.MethodPost, path, gin.H{
			"state":         "Mowing",
			"current_field": "some-task",
			"current_queue": queue.ID.String(),
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "No action required", message(t, envelope))
	})

	t.Run("Idle Machine Gets Next Field", func(t *testing.T) {
		queueState, err := s.store.GetQueue(context.Background(), machine.ID, queue.ID)
		require.NoError(t, err)
		current := queueState.CurrentTask()
		require.NotNil(t, current)

		w, envelope := s.do(t, http.MethodPost, path, gin.H{
			"state":          "Idle",
			"current_field":  "",
			"current_queue":  queue.ID.String(),
			"previous_field": current.ID.String(),
			"timestamp":      float64(time.Now().Unix()),
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, message(t, envelope), fmt.Sprintf("Machine %s can start mowing field ", machineID))

		updated, err := s.store.GetQueue(context.Background(), machine.ID, queue.ID)
		require.NoError(t, err)
		prev := updated.TaskByID(current.ID)
		require.NotNil(t, prev)
		assert.Equal(t, models.TaskStatusCompleted, prev.Status)
	})

	t.Run("Malformed Body Is Acknowledged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	s.createMachine(t, "Machine Kendrick")

	w, envelope := s.do(t, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status service.SystemStatus
	require.NoError(t, json.Unmarshal(envelope["data"], &status))
	assert.Equal(t, int64(1), status.Fleet.Machines)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, true)

	t.Run("Operator Routes Require Token", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/api/v1/machines", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Telemetry Stays Open", func(t *testing.T) {
		path := "/api/v1/machines/11111111-1111-1111-1111-111111111111/incoming_machine_telem"
		w, _ := s.do(t, http.MethodPost, path, gin.H{"state": "Mowing"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Register Login And Call", func(t *testing.T) {
		creds := gin.H{"username": "operator", "password": "hunter2hunter2"}

		w, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", creds)
		require.Equal(t, http.StatusCreated, w.Code)

		w, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", creds)
		assert.Equal(t, http.StatusConflict, w.Code)

		w, envelope := s.do(t, http.MethodPost, "/api/v1/auth/login", creds)
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(envelope["data"], &data))
		require.NotEmpty(t, data.Token)

		w, _ = s.do(t, http.MethodGet, "/api/v1/machines", nil, "Authorization", "Bearer "+data.Token)
		assert.Equal(t, http.StatusOK, w.Code)

		w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login",
			gin.H{"username": "operator", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
