// internal/gateway/message.go
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/laurent357/Sniping-bot/internal/types"
)

// MessageType discriminates IPC envelopes on the wire.
type MessageType string

const (
	TypeTransactionRequest  MessageType = "transaction_request"
	TypeTransactionResponse MessageType = "transaction_response"
	TypeSecurityCheck       MessageType = "security_check"
	TypeSecurityResponse    MessageType = "security_response"
)

// IPCMessage is the wire envelope exchanged with the execution engine.
// The payload stays raw until the type is known.
type IPCMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage wraps a payload into an envelope.
func NewMessage(msgType MessageType, payload any) (IPCMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return IPCMessage{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return IPCMessage{Type: msgType, Data: data}, nil
}

// DecodeData parses the envelope payload into dst.
func (m IPCMessage) DecodeData(dst any) error {
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Instructions is a serialized instruction payload. The engine decodes
// the field as a byte sequence, so it must travel as a JSON array of
// integers, not the base64 string encoding/json gives a plain []byte.
type Instructions []byte

func (ins Instructions) MarshalJSON() ([]byte, error) {
	values := make([]int, len(ins))
	for i, b := range ins {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

func (ins *Instructions) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("instructions must be a byte array: %w", err)
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("instruction byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*ins = out
	return nil
}

// TransactionRequest asks the engine to sign and submit serialized
// instructions.
type TransactionRequest struct {
	Instructions Instructions        `json:"instructions"`
	Priority     types.PriorityLevel `json:"priority"`
	MaxRetries   int                 `json:"max_retries"`
}

// TransactionResponse carries the submitted transaction signature.
type TransactionResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// SecurityCheck asks the engine to vet a token before funds move.
// Amount is in lamports.
type SecurityCheck struct {
	Token  string `json:"token"`
	Amount uint64 `json:"amount"`
}

// SecurityResponse is the engine's verdict. Reason is set when the
// check fails.
type SecurityResponse struct {
	IsSafe bool   `json:"is_safe"`
	Reason string `json:"reason,omitempty"`
}
