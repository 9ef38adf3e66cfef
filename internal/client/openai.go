package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/markis/gh-minigpt/internal/config"
	"github.com/markis/gh-minigpt/internal/stream"
)

// alternateModelPrefix switches a single request to the alternate model.
const alternateModelPrefix = "#"

const (
	modifyInstruction = "You are a code assistant. Do not write any comment or explanation, only return the requested modification of code or text. Never use a code block."
	answerInstruction = "You are a code assistant. Answer concisely."
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body of a streaming chat completion request.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Request describes one completion.
type Request struct {
	// Instruction is what the user asked for.
	Instruction string
	// Text is the selected text the instruction applies to. It may be empty.
	Text string
	// Model overrides the configured model when set.
	Model string
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	cfg    *config.Config
	http   *http.Client
	logger *log.Logger
}

// New builds a Client. The HTTP client owns the request timeout; the stream
// decoder does not.
func New(cfg *config.Config, logger *log.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
		DisableKeepAlives:  false,
		ForceAttemptHTTP2:  true,
		Proxy:              http.ProxyFromEnvironment,
	}

	// Add context-aware dial options
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext

	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: logger,
	}
}

// SelectModel returns the model for instruction and the instruction without
// its model switch. A leading "#" selects the alternate model.
func SelectModel(cfg *config.Config, instruction string) (string, string) {
	if rest, ok := strings.CutPrefix(instruction, alternateModelPrefix); ok && cfg.AlternateModel != "" {
		return cfg.AlternateModel, strings.TrimSpace(rest)
	}
	return cfg.Model, instruction
}

// prepareInput builds the message list for req.
func prepareInput(req Request) []Message {
	if req.Text == "" {
		return []Message{
			{Role: "system", Content: answerInstruction},
			{Role: "user", Content: req.Instruction},
		}
	}

	system := modifyInstruction
	if req.Instruction != "" {
		system += " " + req.Instruction
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Text},
	}
}

// Complete sends req and decodes the streamed response. The returned error
// covers everything up to the first byte of the body; failures while
// streaming are reported through the Outcome.
func (c *Client) Complete(ctx context.Context, req Request, opts ...stream.Option) (stream.Outcome, error) {
	key, err := apiKey(c.cfg)
	if err != nil {
		return stream.Outcome{}, err
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	messages := prepareInput(req)
	data, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	c.logger.Debug("sending request", "url", url, "model", model, "messages", len(messages))

	resp, err := c.http.Do(httpReq)
	if err != nil && ctx.Err() != nil {
		c.logger.Debug("request cancelled before response", "err", err)
		return stream.Outcome{Kind: stream.Cancelled}, nil
	}
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("%w: request failed: %w", stream.ErrTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return stream.Outcome{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	opts = append([]stream.Option{
		stream.WithCancelPolicy(c.cfg.CancelPolicy()),
		stream.WithExcerptLength(c.cfg.Stream.ExcerptLength),
		stream.WithStripCodeFence(c.cfg.Stream.StripCodeFence),
		stream.WithLogger(c.logger),
	}, opts...)

	src := stream.NewReaderSource(resp.Body, c.cfg.Stream.ChunkSize)
	return stream.Run(ctx, src, opts...), nil
}
