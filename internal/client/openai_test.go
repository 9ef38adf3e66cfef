package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/markis/gh-minigpt/internal/client"
	"github.com/markis/gh-minigpt/internal/config"
	"github.com/markis/gh-minigpt/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	auth   string
	accept string
	body   struct {
		Model    string           `json:"model"`
		Stream   bool             `json:"stream"`
		Messages []client.Message `json:"messages"`
	}
}

// sseServer streams lines, flushing after each one.
func sseServer(t *testing.T, lines []string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if got != nil {
			got.auth = r.Header.Get("Authorization")
			got.accept = r.Header.Get("Accept")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) *config.Config {
	cfg := config.Default()
	cfg.APIBase = srv.URL + "/v1"
	cfg.APIKeyEnv = ""
	cfg.APIKey = "test-key"
	return cfg
}

func TestComplete_StreamsText(t *testing.T) {
	t.Parallel()
	var got capturedRequest
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		"data: [DONE]",
	}, &got)

	var excerpts []string
	c := client.New(testConfig(srv), nil)
	out, err := c.Complete(context.Background(), client.Request{
		Instruction: "make it friendlier",
		Text:        "hi",
		Model:       "gpt-4",
	}, stream.WithSink(stream.SinkFunc(func(e string) error {
		excerpts = append(excerpts, e)
		return nil
	})))
	require.NoError(t, err)

	assert.Equal(t, stream.Outcome{Kind: stream.Completed, Text: "Hello"}, out)
	assert.Equal(t, []string{"Hel", "Hello"}, excerpts)
	assert.Equal(t, "Bearer test-key", got.auth)
	assert.Equal(t, "text/event-stream", got.accept)
	assert.Equal(t, "gpt-4", got.body.Model)
	assert.True(t, got.body.Stream)
	require.Len(t, got.body.Messages, 2)
	assert.Equal(t, "system", got.body.Messages[0].Role)
	assert.Contains(t, got.body.Messages[0].Content, "make it friendlier")
	assert.Equal(t, client.Message{Role: "user", Content: "hi"}, got.body.Messages[1])
}

func TestComplete_DefaultModelAndNoSelection(t *testing.T) {
	t.Parallel()
	var got capturedRequest
	srv := sseServer(t, []string{"data: [DONE]"}, &got)

	out, err := client.New(testConfig(srv), nil).Complete(context.Background(), client.Request{Instruction: "what is SSE?"})
	require.NoError(t, err)

	assert.Equal(t, stream.Completed, out.Kind)
	assert.Equal(t, "gpt-3.5-turbo", got.body.Model)
	require.Len(t, got.body.Messages, 2)
	assert.Equal(t, client.Message{Role: "user", Content: "what is SSE?"}, got.body.Messages[1])
}

func TestComplete_MalformedPayload(t *testing.T) {
	t.Parallel()
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {oops`,
		"data: [DONE]",
	}, nil)

	out, err := client.New(testConfig(srv), nil).Complete(context.Background(), client.Request{Instruction: "x"})
	require.NoError(t, err)

	assert.Equal(t, stream.Failed, out.Kind)
	assert.ErrorIs(t, out.Err, stream.ErrPayloadParse)
	assert.Empty(t, out.Text)
}

func TestComplete_StatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	_, err := client.New(testConfig(srv), nil).Complete(context.Background(), client.Request{Instruction: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestComplete_TimeoutIsTransportError(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := testConfig(srv)
	cfg.Timeout = 200 * time.Millisecond

	out, err := client.New(cfg, nil).Complete(context.Background(), client.Request{Instruction: "x"})
	require.NoError(t, err)

	assert.Equal(t, stream.Failed, out.Kind)
	assert.ErrorIs(t, out.Err, stream.ErrTransport)
}

func TestComplete_CancelBeforeResponseIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	out, err := client.New(testConfig(srv), nil).Complete(ctx, client.Request{Instruction: "x"})
	require.NoError(t, err)

	assert.Equal(t, stream.Outcome{Kind: stream.Cancelled}, out)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKeyEnv = "MINIGPT_TEST_UNSET_KEY"
	t.Setenv("MINIGPT_TEST_UNSET_KEY", "")

	_, err := client.New(cfg, nil).Complete(context.Background(), client.Request{Instruction: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNoAPIKey)
	assert.Contains(t, err.Error(), "MINIGPT_TEST_UNSET_KEY")
}

func TestComplete_APIKeyFromEnv(t *testing.T) {
	var got capturedRequest
	srv := sseServer(t, []string{"data: [DONE]"}, &got)
	cfg := testConfig(srv)
	cfg.APIKeyEnv = "MINIGPT_TEST_KEY"
	t.Setenv("MINIGPT_TEST_KEY", "env-key")

	_, err := client.New(cfg, nil).Complete(context.Background(), client.Request{Instruction: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer env-key", got.auth)
}

func TestSelectModel(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	model, instruction := client.SelectModel(cfg, "#  refactor this")
	assert.Equal(t, "gpt-4", model)
	assert.Equal(t, "refactor this", instruction)

	model, instruction = client.SelectModel(cfg, "refactor # this")
	assert.Equal(t, "gpt-3.5-turbo", model)
	assert.Equal(t, "refactor # this", instruction)
}
