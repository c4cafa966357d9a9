package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageBytes bounds one request or response line. import and export carry a whole
// board document.
const MaxMessageBytes = 96 << 20

// ErrMessageTooLarge rejects a line longer than MaxMessageBytes.
var ErrMessageTooLarge = errors.New("ipc message too large")

// Request is one newline-delimited JSON command sent to the board daemon.
type Request struct {
	Command string          `json:"command"`
	Args    []string        `json:"args,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// CaregiverPIN authorizes a single caregiver-only command while caregiver mode is off.
	CaregiverPIN *string `json:"caregiverPin,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	OK      bool            `json:"ok"`
	State   string          `json:"state,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewRequest builds a request, encoding payload when it is non-nil.
func NewRequest(command string, payload any, args ...string) (Request, error) {
	req := Request{Command: command, Args: args}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s payload: %w", command, err)
	}
	req.Payload = raw
	return req, nil
}

// Decode unmarshals the request payload into v.
func (r Request) Decode(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", r.Command)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", r.Command, err)
	}
	return nil
}

// Decode unmarshals the response data into v.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("response has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Err returns the remote failure carried by r, if any.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(r.Error)
}

// Success builds an OK response, encoding data when it is non-nil.
func Success(state string, message string, data any) Response {
	resp := Response{OK: true, State: state, Message: message}
	if data == nil {
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{OK: false, State: state, Error: fmt.Sprintf("encode response data: %v", err)}
	}
	resp.Data = raw
	return resp
}

// Failure builds an error response.
func Failure(state string, err error) Response {
	return Response{OK: false, State: state, Error: err.Error()}
}

// readLine reads one newline-terminated message.
func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(io.LimitReader(r, MaxMessageBytes+1)).ReadBytes('\n')
	if len(line) > MaxMessageBytes {
		return nil, ErrMessageTooLarge
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}
