package gateway

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/types"
)

// engineStub accepts connections and answers each envelope through handle.
type engineStub struct {
	listener net.Listener
	path     string
}

func newEngineStub(t *testing.T, handle func(IPCMessage) IPCMessage) *engineStub {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				dec := json.NewDecoder(conn)
				enc := json.NewEncoder(conn)
				for {
					var msg IPCMessage
					if err := dec.Decode(&msg); err != nil {
						return
					}
					if err := enc.Encode(handle(msg)); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return &engineStub{listener: ln, path: path}
}

func mustMessage(t *testing.T, msgType MessageType, payload any) IPCMessage {
	t.Helper()
	msg, err := NewMessage(msgType, payload)
	require.NoError(t, err)
	return msg
}

func TestRequestTransactionSignature(t *testing.T) {
	var seen TransactionRequest
	stub := newEngineStub(t, func(msg IPCMessage) IPCMessage {
		if msg.Type != TypeTransactionRequest {
			t.Errorf("unexpected request type %q", msg.Type)
		}
		if err := msg.DecodeData(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		return mustMessage(t, TypeTransactionResponse, TransactionResponse{Signature: "SIG1"})
	})

	client, err := NewClient(stub.path, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	sig, err := client.RequestTransaction(context.Background(), []byte{1, 2, 3}, types.PriorityHigh, 3)
	require.NoError(t, err)
	assert.Equal(t, "SIG1", sig)
	assert.Equal(t, Instructions{1, 2, 3}, seen.Instructions)
	assert.Equal(t, types.PriorityHigh, seen.Priority)
	assert.Equal(t, 3, seen.MaxRetries)
}

func TestTransactionRequestWireFormat(t *testing.T) {
	msg, err := NewMessage(TypeTransactionRequest, TransactionRequest{
		Instructions: Instructions{1, 2, 3},
		Priority:     types.PriorityHigh,
		MaxRetries:   3,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	// The engine decodes instructions as a byte sequence: the wire must
	// carry an integer array, never base64.
	assert.JSONEq(t,
		`{"type":"transaction_request","data":{"instructions":[1,2,3],"priority":"HIGH","max_retries":3}}`,
		string(raw))

	var decoded TransactionRequest
	require.NoError(t, msg.DecodeData(&decoded))
	assert.Equal(t, Instructions{1, 2, 3}, decoded.Instructions)
}

func TestInstructionsRejectMalformedPayloads(t *testing.T) {
	var ins Instructions
	require.Error(t, ins.UnmarshalJSON([]byte(`"AQID"`)), "base64 strings are not a valid encoding")
	require.Error(t, ins.UnmarshalJSON([]byte(`[1,999]`)))

	require.NoError(t, ins.UnmarshalJSON([]byte(`[]`)))
	assert.Empty(t, ins)
}

func TestRequestTransactionEngineError(t *testing.T) {
	stub := newEngineStub(t, func(IPCMessage) IPCMessage {
		return mustMessage(t, TypeTransactionResponse, TransactionResponse{Error: "blockhash expired"})
	})

	client, err := NewClient(stub.path, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RequestTransaction(context.Background(), []byte{9}, types.PriorityMedium, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blockhash expired")
}

func TestCheckSecurityVerdicts(t *testing.T) {
	stub := newEngineStub(t, func(msg IPCMessage) IPCMessage {
		var check SecurityCheck
		if err := msg.DecodeData(&check); err != nil {
			t.Errorf("decode check: %v", err)
		}
		if check.Token == "GOOD" {
			return mustMessage(t, TypeSecurityResponse, SecurityResponse{IsSafe: true})
		}
		return mustMessage(t, TypeSecurityResponse, SecurityResponse{IsSafe: false, Reason: "blacklisted"})
	})

	client, err := NewClient(stub.path, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	safe, reason, err := client.CheckSecurity(context.Background(), "GOOD", 1_000_000_000)
	require.NoError(t, err)
	assert.True(t, safe)
	assert.Empty(t, reason)

	safe, reason, err = client.CheckSecurity(context.Background(), "BAD", 1_000_000_000)
	require.NoError(t, err)
	assert.False(t, safe)
	assert.Equal(t, "blacklisted", reason)
}

func TestUnexpectedResponseType(t *testing.T) {
	stub := newEngineStub(t, func(IPCMessage) IPCMessage {
		return mustMessage(t, TypeSecurityResponse, SecurityResponse{IsSafe: true})
	})

	client, err := NewClient(stub.path, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RequestTransaction(context.Background(), []byte{1}, types.PriorityLow, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response type")
}

func TestLazyConnectAndReconnect(t *testing.T) {
	calls := 0
	stub := newEngineStub(t, func(IPCMessage) IPCMessage {
		calls++
		return mustMessage(t, TypeSecurityResponse, SecurityResponse{IsSafe: true})
	})

	client, err := NewClient(stub.path, time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer client.Close()

	_, _, err = client.CheckSecurity(context.Background(), "A", 1)
	require.NoError(t, err)

	// Force a redial on the next call.
	require.NoError(t, client.Close())

	_, _, err = client.CheckSecurity(context.Background(), "B", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSendFailsWhenEngineDown(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "nobody.sock"), 200*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, _, err = client.CheckSecurity(context.Background(), "A", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestCloseWithoutConnect(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "nobody.sock"), time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", time.Second, nil)
	assert.Error(t, err)
}
