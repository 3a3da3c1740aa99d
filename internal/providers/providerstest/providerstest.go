// Package providerstest provides an in-memory providers.Client for tests.
package providerstest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/images/imagestest"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

// Fake answers detection with fixed labels and generation with small PNGs
// produced through providers.FanOut.
type Fake struct {
	T testing.TB

	Objects   []string
	Elements  []string
	DetectErr error
	// SlotOK decides per fan-out slot whether generation succeeds. Nil means always.
	SlotOK func(slot int) bool

	// When set, every call sends on Started and then waits for Gate to close.
	Started chan struct{}
	Gate    chan struct{}

	mu       sync.Mutex
	requests []providers.GenerationRequest
	detects  int
}

func New(t testing.TB) *Fake {
	return &Fake{T: t}
}

func (f *Fake) wait(ctx context.Context) error {
	if f.Started != nil {
		f.Started <- struct{}{}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *Fake) DetectObjects(ctx context.Context, _ *images.Ref) ([]string, error) {
	return f.detect(ctx, f.Objects)
}

func (f *Fake) DetectStructuralElements(ctx context.Context, _ *images.Ref) ([]string, error) {
	return f.detect(ctx, f.Elements)
}

func (f *Fake) detect(ctx context.Context, labels []string) ([]string, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detects++
	if f.DetectErr != nil {
		return nil, f.DetectErr
	}
	return append([]string{}, labels...), nil
}

func (f *Fake) Generate(ctx context.Context, req providers.GenerationRequest) ([]*images.Ref, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	return providers.FanOut(ctx, req.OutputCount, func(_ context.Context, slot int) (*images.Ref, error) {
		if f.SlotOK != nil && !f.SlotOK(slot) {
			return nil, fmt.Errorf("%w: slot %d failed", providers.ErrTransport, slot)
		}
		return imagestest.Ref(f.T, uint8(10+slot)), nil
	})
}

// Requests returns the generation requests received so far
func (f *Fake) Requests() []providers.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.GenerationRequest(nil), f.requests...)
}

// Detections counts detection calls
func (f *Fake) Detections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detects
}
