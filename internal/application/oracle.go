package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	ChatFallback       = "抱歉，灵犀暂时无法回应。请稍后再试。"
	VisionFallback     = "抱歉，暂时无法解读这张图片。请稍后再试。"
	DivinationFallback = "抱歉，卦象暂时无法推演。请稍后再试。"

	defaultVisionPrompt = "请以万物有灵的视角观察这张图片，描述其中的景象与气韵，并给出一句贴近当下的修心建议。"
	maxChatTokens       = 4000
	uploadPrefix        = "zhiwu/"
)

var chatRoles = map[string]bool{"system": true, "user": true, "assistant": true}

type ChatRequest struct {
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   *int                 `json:"max_tokens,omitempty"`
}

type ChatResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Usage   *domain.Usage `json:"usage,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type VisionRequest struct {
	ImageData    string `json:"imageData"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

type VisionResult struct {
	Success        bool          `json:"success"`
	ImageURL       string        `json:"imageUrl"`
	Interpretation string        `json:"interpretation"`
	Usage          *domain.Usage `json:"usage,omitempty"`
	Error          string        `json:"error,omitempty"`
}

type DivinationRequest struct {
	ImageData        string `json:"imageData"`
	EventDescription string `json:"eventDescription"`
}

type DivinationResult struct {
	Success  bool          `json:"success"`
	ImageURL string        `json:"imageUrl"`
	Analysis string        `json:"analysis"`
	Usage    *domain.Usage `json:"usage,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// OracleService proxies the model endpoints. Upstream failures become
// Success=false results; only malformed requests return errors.
type OracleService struct {
	completer domain.ChatCompleter
	store     domain.ObjectStore
	log       zerolog.Logger
	now       func() time.Time
}

func NewOracleService(completer domain.ChatCompleter, store domain.ObjectStore, log zerolog.Logger) *OracleService {
	return &OracleService{completer: completer, store: store, log: log, now: time.Now}
}

func (s *OracleService) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	if err := validateChat(req); err != nil {
		return ChatResult{}, err
	}

	completion, err := s.completer.Chat(ctx, req.Messages, domain.CompletionOptions{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	metrics.OracleRequest("chat", err == nil)
	if err != nil {
		s.log.Error().Err(err).Msg("chat completion failed")
		return ChatResult{Success: false, Message: ChatFallback, Error: err.Error()}, nil
	}
	return ChatResult{Success: true, Message: completion.Content, Usage: completion.Usage}, nil
}

func validateChat(req ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages are required", domain.ErrValidation)
	}
	for i, m := range req.Messages {
		if !chatRoles[m.Role] {
			return fmt.Errorf("%w: message %d has unknown role %q", domain.ErrValidation, i, m.Role)
		}
	}
	if t := req.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: temperature must be within [0, 2]", domain.ErrValidation)
	}
	if n := req.MaxTokens; n != nil && (*n < 1 || *n > maxChatTokens) {
		return fmt.Errorf("%w: max_tokens must be within [1, %d]", domain.ErrValidation, maxChatTokens)
	}
	return nil
}

func (s *OracleService) Vision(ctx context.Context, req VisionRequest) (VisionResult, error) {
	image, err := decodeImage(req.ImageData)
	if err != nil {
		return VisionResult{}, err
	}
	prompt := strings.TrimSpace(req.CustomPrompt)
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	url, completion, err := s.describe(ctx, image, prompt)
	metrics.OracleRequest("vision", err == nil)
	if err != nil {
		s.log.Error().Err(err).Msg("vision interpretation failed")
		return VisionResult{Success: false, ImageURL: url, Interpretation: VisionFallback, Error: err.Error()}, nil
	}
	return VisionResult{Success: true, ImageURL: url, Interpretation: completion.Content, Usage: completion.Usage}, nil
}

func (s *OracleService) Divination(ctx context.Context, req DivinationRequest) (DivinationResult, error) {
	event := strings.TrimSpace(req.EventDescription)
	if event == "" {
		return DivinationResult{}, fmt.Errorf("%w: eventDescription is required", domain.ErrValidation)
	}
	image, err := decodeImage(req.ImageData)
	if err != nil {
		return DivinationResult{}, err
	}

	prompt := fmt.Sprintf("所问之事：%s\n请观察图片中的景象，以周易取象之法起卦断事，说明所得卦象、吉凶趋势与具体的行动建议。", event)
	url, completion, err := s.describe(ctx, image, prompt)
	metrics.OracleRequest("divination", err == nil)
	if err != nil {
		s.log.Error().Err(err).Msg("divination failed")
		return DivinationResult{Success: false, ImageURL: url, Analysis: DivinationFallback, Error: err.Error()}, nil
	}
	return DivinationResult{Success: true, ImageURL: url, Analysis: completion.Content, Usage: completion.Usage}, nil
}

func (s *OracleService) describe(ctx context.Context, image decodedImage, prompt string) (string, domain.Completion, error) {
	key := fmt.Sprintf("%s%d-%s.%s", uploadPrefix, s.now().UnixMilli(), randomSuffix(6), image.ext)
	url, err := s.store.Put(ctx, key, image.data, image.contentType)
	if err != nil {
		return "", domain.Completion{}, fmt.Errorf("upload image: %w", err)
	}
	completion, err := s.completer.Describe(ctx, url, prompt)
	if err != nil {
		return url, domain.Completion{}, err
	}
	return url, completion, nil
}

type decodedImage struct {
	data        []byte
	contentType string
	ext         string
}

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// decodeImage accepts bare base64 or a data URL such as
// "data:image/png;base64,iVBOR...".
func decodeImage(raw string) (decodedImage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decodedImage{}, fmt.Errorf("%w: imageData is required", domain.ErrValidation)
	}

	declared := ""
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return decodedImage{}, fmt.Errorf("%w: imageData must be a base64 data URL", domain.ErrValidation)
		}
		declared = strings.TrimSuffix(header, ";base64")
		raw = payload
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return decodedImage{}, fmt.Errorf("%w: imageData is not valid base64", domain.ErrValidation)
	}
	if len(data) == 0 {
		return decodedImage{}, fmt.Errorf("%w: imageData is empty", domain.ErrValidation)
	}

	contentType := declared
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return decodedImage{}, fmt.Errorf("%w: unsupported image type %q", domain.ErrValidation, contentType)
	}
	return decodedImage{data: data, contentType: contentType, ext: ext}, nil
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
