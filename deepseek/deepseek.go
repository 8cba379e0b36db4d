// Package deepseek is a minimal streaming client for DeepSeek-flavored
// chat completion APIs (api.deepseek.com, SiliconFlow, RagFlow). It
// speaks the OpenAI-compatible SSE protocol and surfaces each delta as
// an event carrying the concatenated reasoning and answer text.
package deepseek

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.siliconflow.com/v1"

// maxErrorBody bounds how much of an undecodable error body is carried
// into the returned error.
const maxErrorBody = 1024

// Client issues streaming chat completion requests against one
// OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the default SiliconFlow endpoint.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

// WithBaseURL points the client at a different OpenAI-compatible API
// base, e.g. a RagFlow deployment or api.deepseek.com.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// SetHTTPClient overrides the HTTP client, e.g. to set timeouts or for
// tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Complete sends a streaming chat completion request. The payload is
// forwarded as-is so callers can pass through request bodies they do
// not fully model. Transport and HTTP-level failures are reported via
// the returned stream's Err; they are not retried here, retry policy
// belongs to the caller.
func (c *Client) Complete(ctx context.Context, payload any) *Stream {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &Stream{err: fmt.Errorf("error encoding JSON: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return &Stream{err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return &Stream{err: fmt.Errorf("error making request: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return &Stream{err: decodeHTTPError(resp)}
	}

	return &Stream{ctx: ctx, body: resp.Body}
}

// decodeHTTPError builds an HTTPError from a non-success response,
// pulling the human-readable message out of the body when it decodes,
// and falling back to the truncated raw body otherwise.
func decodeHTTPError(resp *http.Response) *HTTPError {
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil || len(bodyBytes) == 0 {
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var apiError struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &apiError); err == nil {
		if apiError.Message != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: apiError.Message}
		}
		if apiError.Error.Message != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: apiError.Error.Message}
		}
	}

	body := string(bodyBytes)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: body}
}

// EventType discriminates the events a Stream yields.
type EventType int

const (
	// EventText means the stream produced more delta text. The text may
	// be empty; empty deltas still count as chunks for downstream
	// buffering.
	EventText EventType = iota
	// EventDone means the upstream signaled the end of the response,
	// either with the [DONE] sentinel or a finish_reason.
	EventDone
)

// Event is one unit of upstream progress.
type Event struct {
	Type EventType
	// Text is the reasoning_content and content of the delta,
	// concatenated in that order.
	Text string
}

// Stream is one in-flight streaming response.
type Stream struct {
	ctx  context.Context
	body io.ReadCloser
	err  error
}

// Err returns the first error encountered by the stream, or nil. Check
// it right after Complete and again after Iter finishes.
func (s *Stream) Err() error {
	return s.err
}

// Iter returns a push iterator over the stream's events. Iteration
// stops on the upstream termination signal, end of stream, context
// cancellation, or the first malformed data line; the cause is
// available from Err. The response body is closed when iteration ends.
func (s *Stream) Iter() func(yield func(Event) bool) {
	if s.err != nil {
		return func(yield func(Event) bool) {}
	}
	scanner := bufio.NewScanner(s.body)
	return func(yield func(Event) bool) {
		defer s.body.Close()
		for {
			select {
			case <-s.ctx.Done():
				s.err = s.ctx.Err()
				return
			default:
				// Context OK, keep scanning.
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					s.err = fmt.Errorf("error scanning stream: %w", err)
				}
				return
			}

			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				yield(Event{Type: EventDone})
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				s.err = &ParseError{Raw: data, Err: err}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				yield(Event{Type: EventDone})
				return
			}
			if !yield(Event{Type: EventText, Text: choice.Delta.ReasoningContent + choice.Delta.Content}) {
				return
			}
		}
	}
}
