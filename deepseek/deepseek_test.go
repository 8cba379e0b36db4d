package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, lines []string, verify func(t *testing.T, r *http.Request, body map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verify != nil {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			verify(t, r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
		}
	}
}

func collectEvents(s *Stream) []Event {
	var events []Event
	for event := range s.Iter() {
		events = append(events, event)
	}
	return events
}

func TestCompleteSendsRequest(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(sseHandler(t, []string{"data: [DONE]"}, func(t *testing.T, r *http.Request, body map[string]any) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "deepseek-reasoner", body["model"])
		assert.Equal(t, true, body["stream"])
	}))
	defer server.Close()

	client := New("test-key").WithBaseURL(server.URL)
	stream := client.Complete(context.Background(), map[string]any{
		"model":  "deepseek-reasoner",
		"stream": true,
	})
	require.NoError(t, stream.Err())

	events := collectEvents(stream)
	require.NoError(t, stream.Err())
	assert.Equal(t, "/chat/completions", gotPath)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}

func TestStreamTextEvents(t *testing.T) {
	lines := []string{
		`data: {"choices": [{"delta": {"role": "assistant"}}]}`,
		`data: {"choices": [{"delta": {"reasoning_content": "thinking "}}]}`,
		`data: {"choices": [{"delta": {"reasoning_content": "hard, ", "content": "answer"}}]}`,
		`data: {"choices": [{"delta": {"content": null}}]}`,
		``,
		`: keep-alive comment`,
		`data: {"choices": []}`,
		`data: {"choices": [{"delta": {}, "finish_reason": "stop"}]}`,
	}
	server := httptest.NewServer(sseHandler(t, lines, nil))
	defer server.Close()

	stream := New("k").WithBaseURL(server.URL).Complete(context.Background(), map[string]any{})
	require.NoError(t, stream.Err())

	events := collectEvents(stream)
	require.NoError(t, stream.Err())
	require.Len(t, events, 5)
	assert.Equal(t, Event{Type: EventText, Text: ""}, events[0])
	assert.Equal(t, Event{Type: EventText, Text: "thinking "}, events[1])
	// Reasoning text comes before answer text within one delta.
	assert.Equal(t, Event{Type: EventText, Text: "hard, answer"}, events[2])
	assert.Equal(t, Event{Type: EventText, Text: ""}, events[3])
	assert.Equal(t, Event{Type: EventDone}, events[4])
}

func TestStreamEndsWithoutSentinel(t *testing.T) {
	lines := []string{
		`data: {"choices": [{"delta": {"content": "partial"}}]}`,
	}
	server := httptest.NewServer(sseHandler(t, lines, nil))
	defer server.Close()

	stream := New("k").WithBaseURL(server.URL).Complete(context.Background(), map[string]any{})
	events := collectEvents(stream)

	// EOF without [DONE] is a normal end, not an error.
	require.NoError(t, stream.Err())
	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: EventText, Text: "partial"}, events[0])
}

func TestStreamMalformedPayload(t *testing.T) {
	lines := []string{
		`data: {"choices": [{"delta": {"content": "ok"}}]}`,
		`data: {not json`,
		`data: {"choices": [{"delta": {"content": "never seen"}}]}`,
	}
	server := httptest.NewServer(sseHandler(t, lines, nil))
	defer server.Close()

	stream := New("k").WithBaseURL(server.URL).Complete(context.Background(), map[string]any{})
	events := collectEvents(stream)

	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Text)

	var parseErr *ParseError
	require.ErrorAs(t, stream.Err(), &parseErr)
	assert.Equal(t, "{not json", parseErr.Raw)
	assert.Contains(t, parseErr.Error(), "{not json")
}

func TestCompleteHTTPErrors(t *testing.T) {
	testCases := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
	}{
		{
			name:            "flat message field",
			status:          http.StatusUnauthorized,
			body:            `{"message": "invalid api key"}`,
			expectedMessage: "invalid api key",
		},
		{
			name:            "openai error shape",
			status:          http.StatusTooManyRequests,
			body:            `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`,
			expectedMessage: "rate limited",
		},
		{
			name:            "undecodable body carried raw",
			status:          http.StatusBadGateway,
			body:            "upstream exploded",
			expectedMessage: "upstream exploded",
		},
		{
			name:            "huge body truncated",
			status:          http.StatusInternalServerError,
			body:            strings.Repeat("x", 4096),
			expectedMessage: strings.Repeat("x", maxErrorBody),
		},
		{
			name:            "empty body",
			status:          http.StatusServiceUnavailable,
			body:            "",
			expectedMessage: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			stream := New("k").WithBaseURL(server.URL).Complete(context.Background(), map[string]any{})

			var httpErr *HTTPError
			require.ErrorAs(t, stream.Err(), &httpErr)
			assert.Equal(t, tc.status, httpErr.StatusCode)
			assert.Equal(t, tc.expectedMessage, httpErr.Message)

			// Iterating a dead stream yields nothing.
			assert.Empty(t, collectEvents(stream))
		})
	}
}

func TestStreamContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\": [{\"delta\": {\"content\": \"first\"}}]}\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := New("k").WithBaseURL(server.URL).Complete(ctx, map[string]any{})
	require.NoError(t, stream.Err())

	var events []Event
	for event := range stream.Iter() {
		events = append(events, event)
		cancel()
	}

	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Text)
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}
