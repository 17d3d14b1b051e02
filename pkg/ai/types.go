package ai

import "context"

// Judge is a single-shot, stateless text-completion oracle. Each call carries
// the full prompt; no conversation state is held on the judge side, so the
// caller assembles all context every time.
type Judge interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// JudgeFunc adapts a plain function to the Judge interface.
type JudgeFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Judge.
func (f JudgeFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
