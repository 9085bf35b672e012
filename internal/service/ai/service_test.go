package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ronak501/Research-Agent/backend/internal/config"
)

type fakeChatModel struct {
	reply    string
	err      error
	block    bool
	received []*schema.Message
	calls    int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.received = input
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestServiceGenerateWrapsPromptInTemplate(t *testing.T) {
	fake := &fakeChatModel{reply: "AI is the study of intelligent agents."}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	reply, err := svc.Generate(context.Background(), "What is artificial intelligence?")
	require.NoError(t, err)
	assert.Equal(t, "AI is the study of intelligent agents.", reply)

	require.Len(t, fake.received, 1)
	assert.Equal(t, schema.User, fake.received[0].Role)
	assert.Contains(t, fake.received[0].Content, "You are a research assistant.")
	assert.Contains(t, fake.received[0].Content, "Answer clearly, factually, and concisely.")
	assert.Contains(t, fake.received[0].Content, "Question:\nWhat is artificial intelligence?")
}

func TestServiceGenerateKeepsBracesInQuestion(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "Explain {x: 1} in JSON")
	require.NoError(t, err)
	assert.Contains(t, fake.received[0].Content, "Explain {x: 1} in JSON")
}

func TestServiceExposesChatModel(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	assert.Same(t, fake, svc.ChatModel())
}

func TestServiceGenerateFailureIsGenerationError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("boom")}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "question")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestServiceGenerateRejectsEmptyPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "unused"}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "   ")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Zero(t, fake.calls)
}

func TestServiceGenerateRejectsBlankReply(t *testing.T) {
	fake := &fakeChatModel{reply: ""}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "question")
	assert.Error(t, err)
}

func TestServiceGenerateTimesOut(t *testing.T) {
	fake := &fakeChatModel{block: true}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	_, err = svc.Generate(context.Background(), "question")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestServiceWithGeminiModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Chlorophyll absorbs light."}]}}]}`))
	}))
	defer srv.Close()

	chatModel, err := NewChatModel(context.Background(), config.AIConfig{
		Provider:       config.ProviderGemini,
		GeminiAPIKey:   testAPIKey,
		GeminiEndpoint: srv.URL,
	})
	require.NoError(t, err)

	svc, err := NewService(context.Background(), chatModel)
	require.NoError(t, err)

	reply, err := svc.Generate(context.Background(), "How does photosynthesis start?")
	require.NoError(t, err)
	assert.Equal(t, "Chlorophyll absorbs light.", reply)
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.AIConfig{Provider: "oracle"})
	assert.Error(t, err)
}

func TestNewServiceRequiresModel(t *testing.T) {
	_, err := NewService(context.Background(), nil)
	assert.Error(t, err)
}
