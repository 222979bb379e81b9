package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
)

const (
	// handshakeTimeout bounds the initialize round-trip at spawn time.
	handshakeTimeout = 15 * time.Second

	// maxFrameSize bounds a single response line from the tool process.
	maxFrameSize = 8 * 1024 * 1024
)

// toolFrame is one newline-delimited JSON frame exchanged with a
// subprocess-tool. Requests carry method and params; responses echo the id
// and carry either a result or an error.
type toolFrame struct {
	ID     int64           `json:"id"`
	Method string          `json:"method,omitempty"`
	Params any             `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *toolError      `json:"error,omitempty"`
}

type toolError struct {
	Message string `json:"message"`
}

// ToolHandle is a live connection to a long-running subprocess tool. The
// process is spawned once, spoken to over stdin/stdout, and killed on Close.
type ToolHandle struct {
	providerID string
	cmd        *exec.Cmd
	stdin      *json.Encoder
	logger     *logrus.Logger

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan toolFrame
	done    chan struct{}
	exitErr error
}

// StartTool spawns the provider's subprocess and performs the initialize
// handshake. A failed spawn or handshake reports the provider unavailable;
// the handle is not cached in that case and a later call may retry.
func StartTool(ctx context.Context, provider search.Provider, logger *logrus.Logger) (*ToolHandle, error) {
	argv, err := shlex.Split(provider.Transport.Command)
	if err != nil || len(argv) == 0 {
		return nil, fmt.Errorf("%w: %s has unparseable command", search.ErrProviderUnavailable, provider.ID)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for key, value := range provider.Transport.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", search.ErrProviderUnavailable, provider.ID, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", search.ErrProviderUnavailable, provider.ID, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s failed to start: %v", search.ErrProviderUnavailable, provider.ID, err)
	}

	h := &ToolHandle{
		providerID: provider.ID,
		cmd:        cmd,
		stdin:      json.NewEncoder(stdin),
		logger:     logger,
		pending:    make(map[int64]chan toolFrame),
		done:       make(chan struct{}),
	}

	go h.readLoop(stdout)

	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if _, err := h.Call(handshakeCtx, "initialize", map[string]any{"client": UserAgent}); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("%w: %s handshake failed: %v", search.ErrProviderUnavailable, provider.ID, err)
	}

	logger.WithFields(logrus.Fields{
		"provider": provider.ID,
		"command":  argv[0],
		"pid":      cmd.Process.Pid,
	}).Info("Subprocess tool started")

	return h, nil
}

// readLoop reads response frames and dispatches them to waiting callers.
// When the process exits, every pending call fails.
func (h *ToolHandle) readLoop(stdout interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame toolFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			h.logger.WithFields(logrus.Fields{
				"provider": h.providerID,
			}).WithError(err).Warn("Discarding malformed frame from tool process")
			continue
		}

		h.mu.Lock()
		ch, ok := h.pending[frame.ID]
		if ok {
			delete(h.pending, frame.ID)
		}
		h.mu.Unlock()

		if ok {
			ch <- frame
		}
	}

	h.mu.Lock()
	h.exitErr = fmt.Errorf("tool process %s closed its output", h.providerID)
	if err := scanner.Err(); err != nil {
		h.exitErr = fmt.Errorf("tool process %s read failed: %w", h.providerID, err)
	}
	for id, ch := range h.pending {
		close(ch)
		delete(h.pending, id)
	}
	close(h.done)
	h.mu.Unlock()
}

// Call sends one request frame and waits for the matching response.
func (h *ToolHandle) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	h.mu.Lock()
	if h.exitErr != nil {
		err := h.exitErr
		h.mu.Unlock()
		return nil, err
	}
	h.nextID++
	id := h.nextID
	ch := make(chan toolFrame, 1)
	h.pending[id] = ch

	if err := h.stdin.Encode(toolFrame{ID: id, Method: method, Params: params}); err != nil {
		delete(h.pending, id)
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to write to tool process %s: %w", h.providerID, err)
	}
	h.mu.Unlock()

	select {
	case frame, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("tool process %s exited before responding", h.providerID)
		}
		if frame.Error != nil {
			return nil, fmt.Errorf("tool %s returned error: %s", h.providerID, frame.Error.Message)
		}
		return frame.Result, nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ProviderID returns the owning provider's id.
func (h *ToolHandle) ProviderID() string {
	return h.providerID
}

// Close terminates the subprocess.
func (h *ToolHandle) Close() error {
	if h.cmd.Process != nil {
		if err := h.cmd.Process.Kill(); err != nil {
			h.logger.WithField("provider", h.providerID).WithError(err).Warn("Failed to kill tool process")
		}
	}
	err := h.cmd.Wait()
	select {
	case <-h.done:
	case <-time.After(time.Second):
	}
	h.logger.WithField("provider", h.providerID).Debug("Subprocess tool stopped")
	if err != nil && err.Error() == "signal: killed" {
		return nil
	}
	return err
}
