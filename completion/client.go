package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/logging"
)

const (
	// DefaultBaseURL is the hosted completion service.
	DefaultBaseURL = "https://spinal.onrender.com/"

	// TokenHeader carries the static API credential.
	TokenHeader = "x-api-token"

	// RequestIDHeader correlates a request with server side logs.
	RequestIDHeader = "x-request-id"

	messagePath       = "message"
	messageStreamPath = "message/stream"

	maxErrorBody = 4096
)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Headers    map[string]string
	Logger     logging.Logger
}

// Client is the HTTP implementation of Service. It imposes no timeouts of
// its own; configure them on HTTPClient or the request context.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	headers    map[string]string
	logger     logging.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a Client. Without options it talks to DefaultBaseURL
// using http.DefaultClient.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiToken:   opts.APIToken,
		httpClient: opts.HTTPClient,
		headers:    opts.Headers,
		logger:     opts.Logger,
	}
}

// SendMessage posts the conversation to the message endpoint and returns the
// assistant message.
func (c *Client) SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	start := time.Now()

	resp, err := c.post(ctx, messagePath, messages, tools)
	if err != nil {
		return core.Message{}, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Message{}, fmt.Errorf("send message: %w: decode response: %w", core.ErrTransport, err)
	}

	if out.Message.Role == "" {
		out.Message.Role = core.RoleAssistant
	}

	c.logger.Debug("completion.http.response",
		"path", messagePath,
		"duration_ms", time.Since(start).Milliseconds(),
		"tool_calls", len(out.Message.ToolCalls),
	)

	return out.Message, nil
}

// StreamMessage posts the conversation to the stream endpoint and returns a
// Stream decoding the response body.
func (c *Client) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*Stream, error) {
	resp, err := c.post(ctx, messageStreamPath, messages, tools)
	if err != nil {
		return nil, fmt.Errorf("stream message: %w", err)
	}

	return NewReaderStream(ctx, resp.Body, c.logger), nil
}

func (c *Client) post(ctx context.Context, path string, messages []core.Message, tools []core.ToolSchema) (*http.Response, error) {
	if messages == nil {
		messages = []core.Message{}
	}

	body, err := json.Marshal(Request{Messages: messages, Tools: tools})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", core.ErrTransport, err)
	}

	requestID := core.NewID()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, c.apiToken)
	req.Header.Set(RequestIDHeader, requestID)
	if path == messageStreamPath {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("completion.http.request", "url", url, "request_id", requestID, "messages", len(messages), "tools", len(tools))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("completion.http.failed", "url", url, "request_id", requestID, "error", err.Error())
		return nil, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()

		svcErr := parseErrorResponse(resp)
		c.logger.Error("completion.http.status", "url", url, "request_id", requestID, "status", resp.StatusCode, "error", svcErr.Message)

		return nil, svcErr
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) *core.ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Message
	if len(apiErr.Error) > 0 {
		msg = errorMessage(apiErr.Error)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &core.ServiceError{StatusCode: resp.StatusCode, Message: msg}
}
