package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
)

// SlotFunc produces one image. Returning (nil, nil) means the model answered
// without an image.
type SlotFunc func(ctx context.Context, slot int) (*images.Ref, error)

// FanOut runs n independent generations in parallel and keeps the ones that
// produced an image, in slot order. Failed slots are logged and dropped.
//
// With zero survivors: a single failed slot returns its own error; otherwise
// the result wraps ErrEmptyResult (and any slot errors).
func FanOut(ctx context.Context, n int, fn SlotFunc) ([]*images.Ref, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: output count must be positive", ErrInvalidRequest)
	}

	slots := make([]*images.Ref, n)
	errs := make([]error, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			ref, err := fn(ctx, i)
			if err != nil {
				slog.Warn("Generation slot failed", "slot", i, "of", n, "error", err)
				errs[i] = err
				return nil
			}
			if ref == nil {
				slog.Warn("Generation slot returned no image", "slot", i, "of", n)
			}
			slots[i] = ref
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*images.Ref, 0, n)
	for _, ref := range slots {
		if ref != nil {
			results = append(results, ref)
		}
	}

	if len(results) == 0 {
		if n == 1 && errs[0] != nil {
			return nil, errs[0]
		}
		if joined := errors.Join(errs...); joined != nil {
			return nil, fmt.Errorf("%w: all %d generations failed: %w", ErrEmptyResult, n, joined)
		}
		return nil, fmt.Errorf("%w: %d generations produced no image", ErrEmptyResult, n)
	}

	slog.Info("Generation finished", "requested", n, "succeeded", len(results))
	return results, nil
}
