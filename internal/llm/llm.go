package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
	"google.golang.org/genai"

	"tidings/internal/core"
	"tidings/internal/logger"
)

const (
	// DefaultModel is the primary Gemini model.
	DefaultModel = "gemini-2.0-flash"
	// DefaultFallbackModel takes over after a primary failure.
	DefaultFallbackModel = "gemini-2.0-flash-lite"

	// ttsModel handles speech synthesis requests.
	ttsModel = "gemini-2.5-flash-preview-tts"

	maxRetries      = 2
	initialInterval = 1500 * time.Millisecond
	maxInterval     = 5 * initialInterval
)

// Client wraps the Gemini SDK with a two-arm primary/fallback model policy
// and retry with jittered exponential backoff.
type Client struct {
	modelName    string
	fallbackName string
	gClient      *genai.Client
}

// NewClient creates an LLM client. The API key comes from GEMINI_API_KEY or
// the ai.gemini.api_key config key. A missing key returns an error; callers
// that can operate degraded should treat it as "no LLM available".
func NewClient(modelName, fallbackName string) (*Client, error) {
	apiKey := viper.GetString("ai.gemini.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}
	if fallbackName == "" {
		fallbackName = viper.GetString("ai.gemini.fallback_model")
		if fallbackName == "" {
			fallbackName = DefaultFallbackModel
		}
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName:    modelName,
		fallbackName: fallbackName,
		gClient:      gClient,
	}, nil
}

// Generate produces text for a prompt. The primary model is retried with
// backoff; on exhaustion the fallback model gets one pass. When both fail
// the returned error wraps ErrLLMFailure so callers can emit an explicit
// apology payload instead of fabricated data.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	text, primaryErr := c.generateWithModel(ctx, c.modelName, prompt)
	if primaryErr == nil {
		return text, nil
	}
	logger.Warn("primary model failed, downgrading",
		"model", c.modelName, "fallback", c.fallbackName, "error", primaryErr.Error())

	text, fallbackErr := c.generateWithModel(ctx, c.fallbackName, prompt)
	if fallbackErr == nil {
		return text, nil
	}
	return "", fmt.Errorf("%w: primary: %v; fallback: %v", core.ErrLLMFailure, primaryErr, fallbackErr)
}

// generateWithModel runs one model with retry.
func (c *Client) generateWithModel(ctx context.Context, model, prompt string) (string, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     initialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, maxRetries), ctx)
	policy.Reset()

	var text string
	op := func() error {
		contents := []*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
			Role:  "user",
		}}
		resp, err := c.gClient.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			return fmt.Errorf("failed to generate content: %w", err)
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("empty response from model %s", model)
		}
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return text, nil
}

// Translate renders text into the target language, returning only the
// translation.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text to %s. Return only the translation, no explanations.\n\n%s",
		languageName(targetLang), text)
	out, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Speak synthesizes speech for text with a prebuilt voice, returning raw
// audio bytes.
func (c *Client) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.gClient.Models.GenerateContent(ctx, ttsModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: speech synthesis: %v", core.ErrLLMFailure, err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: speech synthesis returned no audio", core.ErrLLMFailure)
}

func languageName(code string) string {
	switch code {
	case "ta":
		return "Tamil"
	case "hi":
		return "Hindi"
	default:
		return "English"
	}
}
