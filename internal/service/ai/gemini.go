package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"
)

const (
	geminiClientTimeout = 30 * time.Second
	maxResponseBytes    = 4 << 20
	maxErrorRunes       = 200
)

// GeminiChatModel is an eino chat model backed by the Gemini generateContent
// REST endpoint. It performs exactly one request per Generate call.
type GeminiChatModel struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ model.ChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel returns a model posting to endpoint. A nil client gets a
// 30 second timeout.
func NewGeminiChatModel(endpoint, apiKey string, client *http.Client) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid gemini endpoint %q: %w", endpoint, err)
	}
	if client == nil {
		client = &http.Client{Timeout: geminiClientTimeout}
	}
	return &GeminiChatModel{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// Generate sends the conversation and returns the first candidate's text.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	payload, err := json.Marshal(buildGeminiRequest(input))
	if err != nil {
		return nil, &GenerationError{Operation: "encode", Message: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.requestURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &GenerationError{Operation: "request", Message: "build request", Cause: m.redact(err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &GenerationError{Operation: "request", Message: "call gemini", Cause: m.redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &GenerationError{Operation: "response", StatusCode: resp.StatusCode, Message: "read body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GenerationError{
			Operation:  "response",
			StatusCode: resp.StatusCode,
			Message:    describeGeminiError(body),
		}
	}

	text, err := extractCandidateText(body)
	if err != nil {
		return nil, &GenerationError{Operation: "decode", StatusCode: resp.StatusCode, Message: err.Error()}
	}

	return schema.AssistantMessage(text, nil), nil
}

// Stream is not offered; replies are always delivered whole.
func (m *GeminiChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, &GenerationError{Operation: "stream", Message: "streaming is not supported by the gemini model"}
}

// BindTools is a no-op: no tools are offered to the model.
func (m *GeminiChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

func (m *GeminiChatModel) requestURL() string {
	u, err := url.Parse(m.endpoint)
	if err != nil {
		return m.endpoint
	}
	q := u.Query()
	q.Set("key", m.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// redact keeps the api key out of error text; url.Error embeds the full URL.
func (m *GeminiChatModel) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = m.endpoint
		return urlErr
	}
	return errors.New(strings.ReplaceAll(err.Error(), m.apiKey, "REDACTED"))
}

func buildGeminiRequest(input []*schema.Message) geminiRequest {
	var req geminiRequest
	var system []geminiPart

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, geminiPart{Text: msg.Content})
		case schema.Assistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}

	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}
	return req
}

func extractCandidateText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("response is not valid JSON")
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.Type != gjson.String {
		if reason := gjson.GetBytes(body, "promptFeedback.blockReason"); reason.Exists() {
			return "", fmt.Errorf("prompt blocked: %s", reason.String())
		}
		if reason := gjson.GetBytes(body, "candidates.0.finishReason"); reason.Exists() {
			return "", fmt.Errorf("no candidate text (finish reason %s)", reason.String())
		}
		return "", errors.New("response has no candidate text")
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errors.New("candidate text is empty")
	}
	return text.String(), nil
}

func describeGeminiError(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	text := strings.TrimSpace(string(body))
	if runes := []rune(text); len(runes) > maxErrorRunes {
		text = string(runes[:maxErrorRunes]) + "..."
	}
	if text == "" {
		return "empty error response"
	}
	return text
}
