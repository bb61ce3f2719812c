// Package platform wraps every outbound Bot API call behind a fixed timeout
// and a uniform result shape. It performs no retries: retry policy belongs to
// the caller.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single Bot API call
const DefaultTimeout = 10 * time.Second

// API is the raw Bot API channel. *tele.Bot satisfies it.
type API interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// Params is the JSON payload of one call
type Params map[string]any

// Result is the normalized outcome of a call. Transport failures carry Code 0.
type Result struct {
	Method      string
	OK          bool
	Raw         json.RawMessage
	Code        int
	Description string
	Timeout     bool
}

// Err converts a failed result into an error for logging; nil when OK
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Code != 0 {
		return fmt.Errorf("%s: %s (%d)", r.Method, r.Description, r.Code)
	}
	return fmt.Errorf("%s: %s", r.Method, r.Description)
}

// ThreadMissing reports whether the call failed because the target thread no longer exists
func (r Result) ThreadMissing() bool {
	if r.OK {
		return false
	}
	desc := strings.ToLower(r.Description)
	return strings.Contains(desc, "thread not found") ||
		strings.Contains(desc, "topic_deleted") ||
		strings.Contains(desc, "topic_id_invalid") ||
		strings.Contains(desc, "topic not found")
}

// Decode unmarshals the result payload into v
func (r Result) Decode(v any) error {
	if !r.OK {
		return r.Err()
	}
	return json.Unmarshal(r.Raw, v)
}

// MessageID extracts message_id from a Message or MessageId result
func (r Result) MessageID() int {
	var m struct {
		MessageID int `json:"message_id"`
	}
	if err := r.Decode(&m); err != nil {
		return 0
	}
	return m.MessageID
}

// MessageIDs extracts the ids of an array of messages
func (r Result) MessageIDs() []int {
	var ms []struct {
		MessageID int `json:"message_id"`
	}
	if err := r.Decode(&ms); err != nil {
		return nil
	}
	ids := make([]int, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.MessageID)
	}
	return ids
}

// ThreadID extracts message_thread_id from a ForumTopic result
func (r Result) ThreadID() int {
	var t struct {
		ThreadID int `json:"message_thread_id"`
	}
	if err := r.Decode(&t); err != nil {
		return 0
	}
	return t.ThreadID
}

// envelope is the Bot API response body
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client is the resilient call wrapper
type Client struct {
	api     API
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a call wrapper; a non-positive timeout uses DefaultTimeout
func NewClient(api API, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{api: api, timeout: timeout, logger: logger}
}

// Invoke performs one call under the client timeout
func (c *Client) Invoke(ctx context.Context, method string, params Params) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type reply struct {
		data []byte
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		data, err := c.api.Raw(method, params)
		done <- reply{data: data, err: err}
	}()

	var res Result
	select {
	case <-ctx.Done():
		res = Result{Method: method, Timeout: true, Description: ctx.Err().Error()}
	case r := <-done:
		res = decode(method, r.data, r.err)
	}

	if !res.OK {
		c.logger.Debug("Bot API call failed",
			zap.String("method", method),
			zap.Int("code", res.Code),
			zap.String("description", res.Description),
			zap.Bool("timeout", res.Timeout),
		)
	}
	return res
}

// decode prefers the response body over the transport error: the raw channel
// returns both when the API rejects a call.
func decode(method string, data []byte, err error) Result {
	if len(data) > 0 {
		var env envelope
		if jsonErr := json.Unmarshal(data, &env); jsonErr == nil {
			if env.OK {
				return Result{Method: method, OK: true, Raw: env.Result}
			}
			if env.Description != "" || env.ErrorCode != 0 {
				return Result{Method: method, Code: env.ErrorCode, Description: env.Description}
			}
		}
	}
	if err != nil {
		return Result{Method: method, Description: err.Error()}
	}
	return Result{Method: method, Description: "unexpected response"}
}
