package engine

import (
	"context"
	"errors"
)

// Engine turns a prompt (and optional image) into free-text model output.
// Lifecycle: Uninitialized until Initialize succeeds, then Ready until
// Release, which is terminal. Infer outside Ready fails with ErrInvalidState.
// Both implementations honor ctx cancellation at entry and at wait points.
type Engine interface {
	// ModelAvailable reports whether the engine's model artifact is usable.
	ModelAvailable() bool
	Initialize(ctx context.Context) error
	Infer(ctx context.Context, image []byte, prompt string) (string, error)
	// Release frees engine-held resources. Idempotent.
	Release()
}

var (
	// ErrInvalidState is returned when Infer is called before Initialize
	// or after Release.
	ErrInvalidState = errors.New("engine not ready")
	// ErrNotImplemented is returned by the model-backed engine when no
	// execution backend is configured.
	ErrNotImplemented = errors.New("model inference not implemented")
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateReleased
)

const describeImagePrompt = "描述这张图片中的食物："

// DescribeImage asks the engine to describe the food in an image.
func DescribeImage(ctx context.Context, e Engine, image []byte) (string, error) {
	return e.Infer(ctx, image, describeImagePrompt)
}
