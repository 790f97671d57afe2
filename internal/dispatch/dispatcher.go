package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mower-backend/pkg/logger"
)

// Command names understood by the machine controller.
const (
	CommandStartMowing        = "start_mowing"
	CommandPause              = "pause"
	CommandResume             = "resume"
	CommandStop               = "stop"
	CommandUpdateCurrentField = "update_current_field"
)

// Command is the wire payload posted to the machine control endpoint.
// FieldID carries the task id the machine should work on (echoed back in
// telemetry as current_field).
type Command struct {
	Command string `json:"command"`
	FieldID string `json:"field_id"`
	QueueID string `json:"queue_id"`
}

// Dispatcher sends fire-and-forget directives to a machine. Send never
// returns an error: delivery is best-effort and failures are only logged.
type Dispatcher interface {
	Send(ctx context.Context, cmd Command)
}

// HTTPDispatcher posts commands as JSON to a fixed machine-control endpoint.
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPDispatcher(endpoint string, timeout time.Duration, logger *logger.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      logger.GetLogger("dispatcher"),
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, cmd Command) {
	body, err := json.Marshal(cmd)
	if err != nil {
		d.log.Error().Err(err).Str("command", cmd.Command).Msg("Unable to encode machine command")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		d.log.Error().Err(err).Str("command", cmd.Command).Msg("Unable to build machine command request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn().Err(err).
			Str("command", cmd.Command).
			Str("queue_id", cmd.QueueID).
			Msg("Unable to send machine command")
		return
	}
	defer resp.Body.Close()
	// The response body is not interpreted, only drained.
	io.Copy(io.Discard, resp.Body)

	d.log.Debug().
		Str("command", cmd.Command).
		Str("field_id", cmd.FieldID).
		Str("queue_id", cmd.QueueID).
		Int("status", resp.StatusCode).
		Msg("Sent machine command")
}

// Recorder captures commands instead of sending them; used in tests and as
// a stand-in when no machine endpoint is configured.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(ctx context.Context, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Commands returns a copy of everything sent so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}
