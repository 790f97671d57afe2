package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"mower-backend/pkg/config"
)

// State of the simulated machine.
type State string

const (
	StateIdle   State = "Idle"
	StateMowing State = "Mowing"
	StatePaused State = "Paused"
)

// Machine simulates a mowing machine in the field: it accepts commands from
// the backend, works through a mowing countdown, and pushes telemetry back so
// the backend can advance the queue.
type Machine struct {
	cfg    *config.SimulatorConfig
	log    zerolog.Logger
	client *http.Client

	mu            sync.Mutex
	state         State
	currentField  string
	currentQueue  string
	previousField string
	eta           time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.SimulatorConfig, log zerolog.Logger) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		cfg:    cfg,
		log:    log.With().Str("component", "machine").Logger(),
		client: &http.Client{Timeout: 5 * time.Second},
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the mowing countdown and telemetry loops.
func (m *Machine) Start() {
	m.wg.Add(2)
	go m.runMowing()
	go m.runTelemetry()
}

// Stop cancels the loops and waits for them to exit.
func (m *Machine) Stop() {
	m.cancel()
	m.wg.Wait()
}

// StartMowing begins work on the given field.
func (m *Machine) StartMowing(fieldID, queueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateMowing
	m.currentField = fieldID
	m.currentQueue = queueID
	m.eta = m.cfg.Runtime.MowingDuration
	m.log.Info().Str("field", fieldID).Str("queue", queueID).Msg("Started mowing")
}

// StopMowing aborts the current job and returns to idle.
func (m *Machine) StopMowing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	m.currentField = ""
	m.previousField = ""
	m.eta = 0
	m.log.Info().Msg("Stopped mowing")
}

// Pause halts the countdown without losing progress.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StatePaused
	m.log.Info().Msg("Paused")
}

// Resume continues the countdown, or idles when no field is assigned.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentField != "" {
		m.state = StateMowing
	} else {
		m.state = StateIdle
	}
	m.log.Info().Str("state", string(m.state)).Msg("Resumed")
}

// UpdateCurrentField switches to another field mid-run (after a skip). An
// empty field id means nothing is left and the machine idles.
func (m *Machine) UpdateCurrentField(fieldID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentField = fieldID
	m.previousField = ""
	if fieldID == "" {
		m.state = StateIdle
		m.eta = 0
	} else {
		if m.state != StatePaused {
			m.state = StateMowing
		}
		m.eta = m.cfg.Runtime.MowingDuration
	}
	m.log.Info().Str("field", fieldID).Msg("Current field updated")
}

// Status is the snapshot served on the local /status endpoint.
type Status struct {
	MachineID    string `json:"machine_id"`
	State        State  `json:"state"`
	CurrentField string `json:"current_field"`
	CurrentQueue string `json:"current_queue"`
	ETASeconds   int    `json:"eta_seconds"`
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		MachineID:    m.cfg.MachineID,
		State:        m.state,
		CurrentField: m.currentField,
		CurrentQueue: m.currentQueue,
		ETASeconds:   int(m.eta / time.Second),
	}
}

// runMowing ticks down the countdown once per second while mowing.
func (m *Machine) runMowing() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Machine) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateMowing || m.currentField == "" {
		return
	}

	m.eta -= time.Second
	if m.eta > 0 {
		m.log.Debug().
			Str("field", m.currentField).
			Dur("eta", m.eta).
			Msg("Mowing")
		return
	}

	m.log.Info().Str("field", m.currentField).Msg("Finished mowing field")
	// The finished field is reported as previous_field until the backend
	// assigns the next one.
	m.previousField = m.currentField
	m.currentField = ""
	m.state = StateIdle
	m.eta = 0
}

// runTelemetry pushes the machine state to the backend on an interval.
func (m *Machine) runTelemetry() {
	defer m.wg.Done()
	interval := m.cfg.Runtime.TelemetryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if err := m.postTelemetry(); err != nil {
				m.log.Warn().Err(err).Msg("Failed to contact backend")
			}
		}
	}
}

type telemetryPayload struct {
	State         string  `json:"state"`
	CurrentField  string  `json:"current_field"`
	CurrentQueue  string  `json:"current_queue"`
	PreviousField string  `json:"previous_field"`
	Timestamp     float64 `json:"timestamp"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsage   float64 `json:"memory_usage"`
}

func (m *Machine) postTelemetry() error {
	m.mu.Lock()
	payload := telemetryPayload{
		State:         string(m.state),
		CurrentField:  m.currentField,
		CurrentQueue:  m.currentQueue,
		PreviousField: m.previousField,
		Timestamp:     float64(time.Now().UnixNano()) / float64(time.Second),
	}
	m.mu.Unlock()

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		payload.CPUUsage = percents[0]
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		payload.MemoryUsage = memInfo.UsedPercent
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding telemetry: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/machines/%s/incoming_machine_telem",
		m.cfg.Backend.Address, m.cfg.MachineID)
	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telemetry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	m.log.Debug().
		Str("state", payload.State).
		Str("current_field", payload.CurrentField).
		Int("status", resp.StatusCode).
		Msg("Telemetry sent")
	return nil
}
