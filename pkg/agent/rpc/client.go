// Package rpc implements core.Agent over the newline-delimited JSON-RPC 2.0
// protocol spoken by the in-JVM agent.
package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Default connection settings.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryCount     = 3
	DefaultReconnectDelay = 500 * time.Millisecond
)

// Config configures a Client.
type Config struct {
	Host              string
	Port              int
	ConnectTimeout    time.Duration
	RequestTimeout    time.Duration
	RetryCount        int           // extra dial attempts after the first
	ReconnectDelay    time.Duration // pause between dial attempts
	RequestsPerSecond float64       // 0 means unlimited
}

// Address returns host:port.
func (c Config) Address() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// RPCError is an error object returned by the agent.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int64       `json:"id"`
}

type response struct {
	JSONRPC string              `json:"jsonrpc"`
	Result  jsoniter.RawMessage `json:"result"`
	Error   *RPCError           `json:"error"`
	ID      interface{}         `json:"id"`
}

// Client talks to one agent. Requests are serialized: at most one is in
// flight on the connection at a time.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	dialer  func(ctx context.Context, network, addr string) (net.Conn, error)

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int64

	status atomic.Int32
}

// New creates a client. No connection is made until the first request or
// an explicit Connect.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	d := &net.Dialer{Timeout: cfg.ConnectTimeout}
	c := &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		dialer:  d.DialContext,
	}
	c.status.Store(int32(core.Disconnected))
	return c
}

// Connect dials the agent, retrying with a constant backoff up to
// RetryCount extra times.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	addr := c.cfg.Address()
	attempt := 0

	var conn net.Conn
	op := func() error {
		attempt++
		var err error
		conn, err = c.dialer(ctx, "tcp", addr)
		if err != nil {
			logger.L().Debug("agent dial failed",
				zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.ReconnectDelay), uint64(c.cfg.RetryCount)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		c.setStatus(err)
		return c.classify(err).WithDetails(map[string]interface{}{
			"addr":     addr,
			"attempts": attempt,
		})
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.status.Store(int32(core.Connected))
	logger.L().Info("connected to agent", zap.String("addr", addr), zap.Int("attempts", attempt))
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Store(int32(core.Disconnected))
	return c.dropLocked()
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Call sends one request and returns the raw result. Transport failures
// drop the connection so the next call redials.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (jsoniter.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, core.ErrConnectionTimeout.WithCause(err).WithDetails(map[string]interface{}{"method": method})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	c.nextID++
	id := c.nextID
	payload, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("cannot encode request").WithCause(err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	start := time.Now()
	line, err := c.roundTrip(payload)
	if err != nil {
		_ = c.dropLocked()
		c.setStatus(err)
		logger.L().Warn("agent request failed",
			zap.String("method", method), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, c.classify(err).WithDetails(map[string]interface{}{"method": method})
	}
	c.status.Store(int32(core.Connected))

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		_ = c.dropLocked()
		return nil, core.ErrConnection.WithMessage("malformed agent response").WithCause(err).
			WithDetails(map[string]interface{}{"method": method})
	}
	logger.L().Debug("agent request",
		zap.String("method", method), zap.Int64("id", id), zap.Duration("elapsed", time.Since(start)))

	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (c *Client) roundTrip(payload []byte) ([]byte, error) {
	if _, err := c.conn.Write(payload); err != nil {
		return nil, err
	}
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return line, nil
}

// classify maps a transport error onto the connection error codes.
func (c *Client) classify(err error) *core.ExecutionError {
	if isTimeout(err) {
		return core.ErrConnectionTimeout.WithCause(err)
	}
	return core.ErrConnection.WithCause(err)
}

func (c *Client) setStatus(err error) {
	if isTimeout(err) {
		c.status.Store(int32(core.TimedOut))
		return
	}
	c.status.Store(int32(core.Disconnected))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ConnectionStatus reports the state observed by the last request.
func (c *Client) ConnectionStatus() core.ConnectionStatus {
	return core.ConnectionStatus(c.status.Load())
}

// Ping checks that the agent answers.
func (c *Client) Ping(ctx context.Context) error {
	raw, err := c.Call(ctx, "ping", nil)
	if err != nil {
		return asConnectionError("ping", err)
	}
	var reply string
	if err := json.Unmarshal(raw, &reply); err != nil || reply != "pong" {
		return core.ErrConnection.WithMessagef("unexpected ping reply %s", string(raw))
	}
	return nil
}

// FetchTreeSnapshot requests the full component tree.
func (c *Client) FetchTreeSnapshot(ctx context.Context) (*core.Snapshot, error) {
	raw, err := c.Call(ctx, "getComponentTree", nil)
	if err != nil {
		return nil, asConnectionError("getComponentTree", err)
	}
	snap, err := DecodeTree(raw)
	if err != nil {
		return nil, core.ErrConnection.WithMessage("malformed component tree").WithCause(err)
	}
	return snap, nil
}

// PerformAction invokes the action as an RPC method on the component.
func (c *Client) PerformAction(ctx context.Context, remoteID, action string, args map[string]interface{}) error {
	params := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		params[k] = v
	}
	params["componentId"] = componentID(remoteID)

	if _, err := c.Call(ctx, action, params); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return core.ErrActionFailed.WithMessagef("%s failed: %s", action, rpcErr.Message).
				WithCause(rpcErr).
				WithDetails(map[string]interface{}{"action": action, "remote_id": remoteID, "rpc_code": rpcErr.Code})
		}
		return err
	}
	return nil
}

// asConnectionError wraps an agent-side error reply for a read request.
func asConnectionError(method string, err error) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return core.ErrConnection.WithMessagef("agent rejected %s", method).WithCause(rpcErr).
			WithDetails(map[string]interface{}{"method": method, "rpc_code": rpcErr.Code})
	}
	return err
}

// componentID sends numeric ids as numbers, which is what the agent parses.
func componentID(remoteID string) interface{} {
	if n, err := strconv.ParseInt(remoteID, 10, 64); err == nil {
		return n
	}
	return remoteID
}

var _ core.Agent = (*Client)(nil)
