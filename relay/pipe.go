// Package relay drives streamed DeepSeek chat completions through the
// reasoning transducer and forwards the rewritten fragments to the
// client as they become final. It is the Go counterpart of the Open
// WebUI "pipe" shape: a per-request streaming function plus a set of
// valves for configuration and an optional status side channel.
package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medicnex/ragflow-relay/deepseek"
	"github.com/medicnex/ragflow-relay/reasoning"
)

// ModelInfo is one selectable model exposed by the relay.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pipe relays streaming chat completions from a DeepSeek-compatible
// API, rewriting <think> reasoning spans into fenced blocks on the way
// through. A single Pipe serves any number of concurrent requests; all
// per-response state lives inside Stream.
type Pipe struct {
	valves  Valves
	logger  *zap.Logger
	emitter StatusEmitter
	client  *deepseek.Client
}

// NewPipe creates a Pipe from the given valves.
func NewPipe(valves Valves) *Pipe {
	client := deepseek.New(valves.APIKey).WithBaseURL(valves.BaseURL)
	if valves.TimeoutSeconds > 0 {
		client.SetHTTPClient(&http.Client{Timeout: time.Duration(valves.TimeoutSeconds) * time.Second})
	}
	return &Pipe{
		valves: valves,
		logger: zap.NewNop(),
		client: client,
	}
}

// WithLogger attaches a logger for diagnostics. The default is a no-op
// logger.
func (p *Pipe) WithLogger(logger *zap.Logger) *Pipe {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithEmitter attaches a status side channel.
func (p *Pipe) WithEmitter(emitter StatusEmitter) *Pipe {
	p.emitter = emitter
	return p
}

// SetHTTPClient overrides the upstream HTTP client, e.g. for tests.
func (p *Pipe) SetHTTPClient(client *http.Client) {
	p.client.SetHTTPClient(client)
}

// Valves returns the pipe's configuration.
func (p *Pipe) Valves() Valves {
	return p.valves
}

// Models lists the models configured in the Model valve, one entry per
// comma-separated name.
func (p *Pipe) Models() []ModelInfo {
	names := strings.Split(p.valves.Model, ",")
	models := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		models = append(models, ModelInfo{ID: name, Name: name})
	}
	return models
}

// Stream relays one chat completion request. It returns immediately
// with a channel of finalized text fragments; the caller concatenates
// them into the response. If anything goes wrong, the last fragment on
// the channel is a single {"error": ...} JSON object, preceded by
// whatever buffered text could still be delivered. The channel is
// closed when the response is complete or ctx is cancelled.
func (p *Pipe) Stream(ctx context.Context, body map[string]any) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		if strings.TrimSpace(p.valves.APIKey) == "" {
			p.send(ctx, out, errorJSON("API key not configured"))
			return
		}

		payload := p.buildPayload(body)
		p.emitStatus(ctx, NewStatus("Connecting to upstream model...", false))

		stream := p.client.Complete(ctx, payload)
		if err := stream.Err(); err != nil {
			p.logger.Warn("upstream request failed", zap.Error(err))
			p.emitStatus(ctx, NewStatus("Upstream request failed", true))
			p.send(ctx, out, formatStreamError(err))
			return
		}

		// Per-response transducer state; never shared across streams.
		tr := reasoning.New()
		deliver := true

		for event := range stream.Iter() {
			if event.Type != deepseek.EventText {
				break
			}
			for _, fragment := range tr.Push(event.Text) {
				if !p.send(ctx, out, fragment) {
					deliver = false
					break
				}
			}
			if !deliver {
				break
			}
		}

		// Forced finalization runs on every exit path (end marker,
		// finish reason, upstream error, cancellation) so no buffered
		// chunk is silently dropped. Delivery of the flushed fragments
		// is best effort once the consumer is gone.
		for _, fragment := range tr.Flush() {
			if deliver && !p.send(ctx, out, fragment) {
				deliver = false
			}
		}

		if err := stream.Err(); err != nil {
			p.logger.Warn("stream aborted", zap.Error(err))
			p.emitStatus(ctx, NewStatus("Stream aborted", true))
			if deliver {
				p.send(ctx, out, formatStreamError(err))
			}
			return
		}
		p.emitStatus(ctx, NewStatus("Response complete", true))
	}()
	return out
}

// buildPayload copies the request body, rewrites the model name (Open
// WebUI prefixes it with the pipe id, e.g. "relay.deepseek-reasoner"),
// normalizes the message history, and forces streaming.
func (p *Pipe) buildPayload(body map[string]any) map[string]any {
	payload := make(map[string]any, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}

	model, _ := payload["model"].(string)
	if idx := strings.Index(model, "."); idx >= 0 {
		model = model[idx+1:]
	}
	payload["model"] = model
	payload["stream"] = true

	if messages, ok := messageList(payload["messages"]); ok {
		payload["messages"] = NormalizeMessages(messages)
	}
	return payload
}

// messageList coerces the decoded "messages" field into []Message. JSON
// decoding yields []any; callers constructing bodies in Go tend to pass
// []Message directly.
func messageList(v any) ([]Message, bool) {
	switch msgs := v.(type) {
	case []Message:
		return msgs, true
	case []any:
		out := make([]Message, 0, len(msgs))
		for _, m := range msgs {
			mm, ok := m.(Message)
			if !ok {
				return nil, false
			}
			out = append(out, mm)
		}
		return out, true
	default:
		return nil, false
	}
}

func (p *Pipe) emitStatus(ctx context.Context, status Status) {
	if p.emitter != nil {
		p.emitter.EmitStatus(ctx, status)
	}
}

func (p *Pipe) send(ctx context.Context, out chan<- string, fragment string) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- fragment:
		return true
	}
}
