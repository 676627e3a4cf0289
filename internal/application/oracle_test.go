package application

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	err      error
	content  string
	messages []domain.ChatMessage
	opts     domain.CompletionOptions
	imageURL string
	prompt   string
}

func (f *fakeCompleter) Chat(_ context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (domain.Completion, error) {
	f.messages = messages
	f.opts = opts
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Content: f.content, Usage: &domain.Usage{TotalTokens: 12}}, nil
}

func (f *fakeCompleter) Describe(_ context.Context, imageURL, prompt string) (domain.Completion, error) {
	f.imageURL = imageURL
	f.prompt = prompt
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Content: f.content}, nil
}

type fakeStore struct {
	err         error
	key         string
	data        []byte
	contentType string
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data, f.contentType = key, data, contentType
	return "https://cdn.example.com/" + key, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func ptr[T any](v T) *T { return &v }

func TestChatValidation(t *testing.T) {
	svc := NewOracleService(&fakeCompleter{}, &fakeStore{}, zerolog.Nop())
	user := []domain.ChatMessage{{Role: "user", Content: "hi"}}

	cases := []ChatRequest{
		{},
		{Messages: []domain.ChatMessage{{Role: "tool", Content: "x"}}},
		{Messages: user, Temperature: ptr(2.5)},
		{Messages: user, Temperature: ptr(-0.1)},
		{Messages: user, MaxTokens: ptr(0)},
		{Messages: user, MaxTokens: ptr(4001)},
	}
	for _, req := range cases {
		_, err := svc.Chat(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	_, err := svc.Chat(context.Background(), ChatRequest{Messages: user, Temperature: ptr(2.0), MaxTokens: ptr(4000)})
	require.NoError(t, err)
}

func TestChatPassesThroughAndFallsBack(t *testing.T) {
	completer := &fakeCompleter{content: "心安即是归处"}
	svc := NewOracleService(completer, &fakeStore{}, zerolog.Nop())
	req := ChatRequest{
		Messages:    []domain.ChatMessage{{Role: "system", Content: "你是灵犀"}, {Role: "user", Content: "迷茫"}},
		Temperature: ptr(0.3),
	}

	result, err := svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "心安即是归处", result.Message)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 12, result.Usage.TotalTokens)
	assert.Equal(t, req.Messages, completer.messages)
	assert.Equal(t, 0.3, *completer.opts.Temperature)
	assert.Nil(t, completer.opts.MaxTokens)

	completer.err = errors.New("upstream 503")
	result, err = svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ChatFallback, result.Message)
	assert.Equal(t, "upstream 503", result.Error)
}

func TestVisionUploadsAndDescribes(t *testing.T) {
	completer := &fakeCompleter{content: "青山入画"}
	store := &fakeStore{}
	svc := NewOracleService(completer, store, zerolog.Nop())
	svc.now = func() time.Time { return time.UnixMilli(1760500000000) }

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	result, err := svc.Vision(context.Background(), VisionRequest{ImageData: dataURL})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "青山入画", result.Interpretation)

	assert.Regexp(t, regexp.MustCompile(`^zhiwu/1760500000000-[a-z0-9]{6}\.png$`), store.key)
	assert.Equal(t, pngBytes, store.data)
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, "https://cdn.example.com/"+store.key, result.ImageURL)
	assert.Equal(t, result.ImageURL, completer.imageURL)
	assert.Equal(t, defaultVisionPrompt, completer.prompt)

	_, err = svc.Vision(context.Background(), VisionRequest{
		ImageData:    base64.StdEncoding.EncodeToString(pngBytes),
		CustomPrompt: "这是什么花",
	})
	require.NoError(t, err)
	assert.Equal(t, "这是什么花", completer.prompt)
	assert.Equal(t, "image/png", store.contentType)
}

func TestVisionRejectsBadImages(t *testing.T) {
	svc := NewOracleService(&fakeCompleter{}, &fakeStore{}, zerolog.Nop())
	for _, data := range []string{"", "!!!not base64", "data:image/png,raw", base64.StdEncoding.EncodeToString([]byte("plain text"))} {
		_, err := svc.Vision(context.Background(), VisionRequest{ImageData: data})
		assert.ErrorIs(t, err, domain.ErrValidation, data)
	}
}

func TestVisionFallbackOnUploadFailure(t *testing.T) {
	completer := &fakeCompleter{content: "unused"}
	svc := NewOracleService(completer, &fakeStore{err: errors.New("bucket offline")}, zerolog.Nop())

	result, err := svc.Vision(context.Background(), VisionRequest{ImageData: base64.StdEncoding.EncodeToString(pngBytes)})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, VisionFallback, result.Interpretation)
	assert.Empty(t, completer.imageURL, "model is not called without an uploaded image")
}

func TestDivination(t *testing.T) {
	completer := &fakeCompleter{content: "得地山谦"}
	svc := NewOracleService(completer, &fakeStore{}, zerolog.Nop())
	image := base64.StdEncoding.EncodeToString(pngBytes)

	_, err := svc.Divination(context.Background(), DivinationRequest{ImageData: image})
	require.ErrorIs(t, err, domain.ErrValidation)

	result, err := svc.Divination(context.Background(), DivinationRequest{ImageData: image, EventDescription: "换工作"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "得地山谦", result.Analysis)
	assert.Contains(t, completer.prompt, "换工作")

	completer.err = errors.New("timeout")
	result, err = svc.Divination(context.Background(), DivinationRequest{ImageData: image, EventDescription: "换工作"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, DivinationFallback, result.Analysis)
	assert.NotEmpty(t, result.ImageURL)
}
