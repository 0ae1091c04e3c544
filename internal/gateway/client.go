// internal/gateway/client.go
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/types"
)

const unixNetwork = "unix"

// DefaultTimeout bounds a single request/response exchange when the
// caller's context carries no deadline.
const DefaultTimeout = 5 * time.Second

// Client talks JSON over a unix domain socket to the execution engine.
// One request gets one response; calls are serialized on the connection.
// The connection is dialed lazily on first use and redialed after any
// transport error.
type Client struct {
	addr    net.UnixAddr
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// NewClient creates a client for the engine socket at path.
func NewClient(path string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("ipc socket path is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		addr:    net.UnixAddr{Name: path, Net: unixNetwork},
		timeout: timeout,
		logger:  logger.Named("gateway"),
	}, nil
}

// Path returns the configured socket path.
func (c *Client) Path() string {
	return c.addr.Name
}

// connectLocked dials the socket. Caller holds c.mu.
func (c *Client) connectLocked() error {
	conn, err := net.DialUnix(unixNetwork, nil, &c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to execution engine at %s: %w", c.addr.Name, err)
	}
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	c.dec = json.NewDecoder(conn)
	c.logger.Info("connected to execution engine", zap.String("socket", c.addr.Name))
	return nil
}

// dropLocked discards a broken connection so the next call redials.
// Caller holds c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.enc = nil
		c.dec = nil
	}
}

// Send performs one request/response exchange. A single attempt: any
// transport failure is returned to the caller, retry policy lives with
// the caller.
func (c *Client) Send(ctx context.Context, msg IPCMessage) (IPCMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return IPCMessage{}, err
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return IPCMessage{}, fmt.Errorf("failed to set ipc deadline: %w", err)
	}

	if err := c.enc.Encode(msg); err != nil {
		c.dropLocked()
		return IPCMessage{}, fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	var resp IPCMessage
	if err := c.dec.Decode(&resp); err != nil {
		c.dropLocked()
		return IPCMessage{}, fmt.Errorf("failed to read response to %s: %w", msg.Type, err)
	}
	return resp, nil
}

// RequestTransaction submits serialized instructions for signing and
// broadcast, returning the transaction signature.
func (c *Client) RequestTransaction(ctx context.Context, instructions []byte, priority types.PriorityLevel, maxRetries int) (string, error) {
	msg, err := NewMessage(TypeTransactionRequest, TransactionRequest{
		Instructions: instructions,
		Priority:     priority,
		MaxRetries:   maxRetries,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	if resp.Type != TypeTransactionResponse {
		return "", fmt.Errorf("unexpected response type %q to transaction request", resp.Type)
	}

	var payload TransactionResponse
	if err := resp.DecodeData(&payload); err != nil {
		return "", err
	}
	if payload.Error != "" {
		return "", fmt.Errorf("execution engine rejected transaction: %s", payload.Error)
	}
	if payload.Signature == "" {
		return "", fmt.Errorf("execution engine returned empty signature")
	}
	c.logger.Info("transaction submitted",
		zap.String("signature", payload.Signature),
		zap.String("priority", string(priority)))
	return payload.Signature, nil
}

// CheckSecurity asks the engine to vet a token before committing funds.
// Amount is in lamports. An unsafe verdict carries the engine's reason.
func (c *Client) CheckSecurity(ctx context.Context, token string, amount uint64) (bool, string, error) {
	msg, err := NewMessage(TypeSecurityCheck, SecurityCheck{Token: token, Amount: amount})
	if err != nil {
		return false, "", err
	}

	resp, err := c.Send(ctx, msg)
	if err != nil {
		return false, "", err
	}
	if resp.Type != TypeSecurityResponse {
		return false, "", fmt.Errorf("unexpected response type %q to security check", resp.Type)
	}

	var payload SecurityResponse
	if err := resp.DecodeData(&payload); err != nil {
		return false, "", err
	}
	if !payload.IsSafe {
		c.logger.Warn("security check failed",
			zap.String("token", token),
			zap.String("reason", payload.Reason))
	}
	return payload.IsSafe, payload.Reason, nil
}

// Close shuts the connection down. Safe to call when never connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.enc = nil
	c.dec = nil
	if err != nil {
		return fmt.Errorf("failed to close ipc connection: %w", err)
	}
	c.logger.Info("ipc connection closed")
	return nil
}
