package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/motoclube/roleplanner/internal/domain"
)

// RetryPolicy bounds how often a provider call is attempted.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// InitialDelay is the wait before the second call; it doubles after that.
	InitialDelay time.Duration
}

// DefaultRetryPolicy is five attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, InitialDelay: time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	return retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))
}

// Retryable reports whether err is worth another attempt: rate limiting
// (HTTP 429) and transport errors. Other provider statuses, 5xx included, fail
// straight to the fallback. Context cancellation is never retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests
}

// do runs fn under policy and normalises the final error.
func do[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	v, err := retry.DoValue(ctx, policy.backoff(), func(ctx context.Context) (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if Retryable(err) {
			logger.Debug("provider call failed, retrying",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return v, retry.RetryableError(err)
		}
		return v, err
	})
	if err == nil {
		return v, nil
	}
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, fmt.Errorf("generator.%s: %w", op, ctxErr)
	}
	if errors.Is(err, domain.ErrProvider) {
		return zero, fmt.Errorf("generator.%s: %w", op, err)
	}
	return zero, fmt.Errorf("generator.%s: %w: %w", op, domain.ErrProvider, err)
}

type retryText struct {
	next   TextProvider
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry wraps a TextProvider with bounded exponential backoff. Errors that
// survive every attempt are wrapped in domain.ErrProvider.
func WithRetry(next TextProvider, policy RetryPolicy, logger *zap.Logger) TextProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryText{next: next, policy: policy, logger: logger}
}

func (r *retryText) Generate(ctx context.Context, prompt string) (string, error) {
	return do(ctx, r.policy, r.logger, "Generate", func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, prompt)
	})
}

type retryImage struct {
	next   ImageProvider
	policy RetryPolicy
	logger *zap.Logger
}

// WithImageRetry is WithRetry for image providers.
func WithImageRetry(next ImageProvider, policy RetryPolicy, logger *zap.Logger) ImageProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryImage{next: next, policy: policy, logger: logger}
}

func (r *retryImage) Image(ctx context.Context, prompt string) (Image, error) {
	return do(ctx, r.policy, r.logger, "Image", func(ctx context.Context) (Image, error) {
		return r.next.Image(ctx, prompt)
	})
}
