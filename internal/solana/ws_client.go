package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"curve-sniper/internal/observability"
)

// LogStreamConfig configures the log stream client.
type LogStreamConfig struct {
	// ReconnectDelay is the fixed wait before a reconnect attempt.
	ReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Commitment is the subscription commitment level.
	Commitment string
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultLogStreamConfig returns the default stream configuration.
func DefaultLogStreamConfig() LogStreamConfig {
	return LogStreamConfig{
		ReconnectDelay: 2 * time.Second,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		Commitment:     "processed",
		Buffer:         10000,
	}
}

// LogNotification is a single logsNotification payload.
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	Err       interface{}
}

// LogStream maintains a single logsSubscribe subscription over WebSocket.
// On any socket failure it reconnects after a fixed delay and resubscribes;
// notifications missed while disconnected are not replayed.
type LogStream struct {
	endpoint string
	mentions []string
	config   LogStreamConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	requestID atomic.Uint64
	closed    atomic.Bool

	subID int64

	notifications chan LogNotification
	reconnects    atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewLogStream creates a stream subscribed to logs mentioning the given
// addresses. The subscription is established before returning.
func NewLogStream(ctx context.Context, endpoint string, mentions []string, config *LogStreamConfig, logger *log.Logger) (*LogStream, error) {
	cfg := DefaultLogStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[ws] ", log.LstdFlags)
	}

	s := &LogStream{
		endpoint:      endpoint,
		mentions:      mentions,
		config:        cfg,
		logger:        logger,
		notifications: make(chan LogNotification, cfg.Buffer),
		done:          make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(ctx); err != nil {
		s.conn.Close()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Notifications returns the stream of log notifications. The channel is
// closed by Close.
func (s *LogStream) Notifications() <-chan LogNotification {
	return s.notifications
}

// Reconnects reports how many times the stream has reconnected.
func (s *LogStream) Reconnects() uint64 {
	return s.reconnects.Load()
}

// Close tears down the connection and closes the notification channel.
func (s *LogStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.notifications)
	return nil
}

func (s *LogStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// subscribe sends logsSubscribe and waits for the subscription ID. It owns
// the connection exclusively: the read loop is not running yet.
func (s *LogStream) subscribe(ctx context.Context) error {
	reqID := s.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": s.mentions},
			map[string]string{"commitment": s.config.Commitment},
		},
	}

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read subscribe response: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.ID == reqID {
			if resp.Error != nil {
				return fmt.Errorf("logsSubscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
			}
			s.subID = resp.Result
			return nil
		}

		// Notification raced ahead of the confirmation; deliver it.
		s.handleMessage(message)
	}
}

// readLoop reads notifications and drives reconnection.
func (s *LogStream) readLoop() {
	defer s.wg.Done()

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.waitAndReconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("read error, reconnecting in %v: %v", s.config.ReconnectDelay, err)
			s.dropConn()
			if !s.waitAndReconnect() {
				return
			}
			continue
		}

		s.handleMessage(message)
	}
}

func (s *LogStream) dropConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// waitAndReconnect waits the fixed delay, reconnects and resubscribes.
// Returns false when the stream is shutting down.
func (s *LogStream) waitAndReconnect() bool {
	select {
	case <-s.done:
		return false
	case <-time.After(s.config.ReconnectDelay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Printf("reconnect failed: %v", err)
		return !s.closed.Load()
	}
	if err := s.subscribe(ctx); err != nil {
		s.logger.Printf("resubscribe failed: %v", err)
		s.dropConn()
		return !s.closed.Load()
	}

	s.reconnects.Add(1)
	observability.RecordWSReconnect()
	s.logger.Printf("reconnected and resubscribed (sub=%d)", s.subID)
	return true
}

func (s *LogStream) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	ln := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		ln.Slot = notif.Params.Result.Context.Slot
	}

	// Blocking send; the buffer absorbs bursts.
	select {
	case s.notifications <- ln:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *LogStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"`
	Error   *wsError `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot uint64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
