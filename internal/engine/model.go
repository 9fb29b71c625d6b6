package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// DefaultModelPath is the well-known artifact location checked by the
	// availability gate.
	DefaultModelPath = "models/qwen2-vl-2b-instruct-q4.gguf"
	// DefaultMinModelBytes guards against truncated downloads; the full
	// artifact is roughly 1.5GB.
	DefaultMinModelBytes = 1_000_000_000
	// ModelSizeBytes is the expected size of the full artifact.
	ModelSizeBytes = 1_572_864_000
	// ModelDownloadURL is surfaced to acquisition flows; the engine never
	// fetches it.
	ModelDownloadURL = "https://modelscope.cn/models/qwen/Qwen2-VL-2B-Instruct/files"
)

// ModelConfig configures a model-backed engine.
type ModelConfig struct {
	// Path of the model artifact on disk. Empty selects DefaultModelPath.
	Path string
	// MinBytes below which the artifact is treated as corrupt or
	// incomplete. Zero selects DefaultMinModelBytes.
	MinBytes int64
	// BaseURL of an OpenAI-compatible server (e.g. llama.cpp's llama-server)
	// running the artifact. Empty leaves inference not implemented.
	BaseURL string
	// Model name passed to the server. Local servers typically ignore it.
	Model string
}

// Model is the model-backed engine. The artifact check happens locally;
// execution is delegated to an OpenAI-compatible server when configured.
type Model struct {
	cfg    ModelConfig
	client openai.Client

	mu    sync.Mutex
	state state
}

// NewModel constructs a model-backed engine from config, applying defaults.
func NewModel(cfg ModelConfig) *Model {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = DefaultModelPath
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = DefaultMinModelBytes
	}
	return &Model{cfg: cfg}
}

// ModelAvailable reports whether the artifact exists and exceeds the
// minimum size threshold.
func (e *Model) ModelAvailable() bool {
	info, err := os.Stat(e.cfg.Path)
	if err != nil {
		return false
	}
	return info.Size() > e.cfg.MinBytes
}

// ModelPath returns the artifact path.
func (e *Model) ModelPath() string { return e.cfg.Path }

// ModelSizeMB returns the expected artifact size in megabytes.
func ModelSizeMB() int {
	return ModelSizeBytes / 1024 / 1024
}

// Initialize verifies the artifact and prepares the backend client.
func (e *Model) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateReleased {
		return ErrInvalidState
	}
	if e.state == stateReady {
		return nil
	}
	if !e.ModelAvailable() {
		return fmt.Errorf("model artifact missing or undersized at %s", e.cfg.Path)
	}
	if e.cfg.BaseURL != "" {
		e.client = openai.NewClient(
			option.WithBaseURL(e.cfg.BaseURL),
			option.WithAPIKey("local"),
		)
	}
	e.state = stateReady
	return nil
}

// Infer sends the prompt to the configured backend. Without a backend it
// surfaces ErrNotImplemented. The image is accepted but not forwarded; image
// understanding runs through DescribeImage upstream.
func (e *Model) Infer(ctx context.Context, image []byte, promptText string) (string, error) {
	_ = image

	e.mu.Lock()
	ready := e.state == stateReady
	e.mu.Unlock()
	if !ready {
		return "", ErrInvalidState
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.cfg.BaseURL == "" {
		return "", ErrNotImplemented
	}

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(promptText),
		},
		Model: openai.ChatModel(e.cfg.Model),
	})
	if err != nil {
		return "", fmt.Errorf("model inference: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("model inference: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

// Release moves the engine to its terminal state.
func (e *Model) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateReleased
}
