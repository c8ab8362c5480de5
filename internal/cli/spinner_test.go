package cli

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want bool
	}{
		{
			name: "cancelled parent",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			want: true,
		},
		{
			name: "expired parent",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			want: true,
		},
		{
			name: "live parent",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithCancel(context.Background())
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerWithContext(ctx, "Remeshing...")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if got := s.Cancelled(); got != tt.want {
				t.Errorf("Cancelled() = %v, want %v", got, tt.want)
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithMessage(t *testing.T) {
	s := newSpinner("Rendering wireframe...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithSuccess("Done")

	s = newSpinner("Rendering wireframe...")
	s.Start()
	s.StopWithError("Render failed")
}

func TestSpinnerElapsed(t *testing.T) {
	s := newSpinner("Remeshing...")
	s.Start()
	defer s.Stop()

	got := s.elapsed()
	if !strings.HasSuffix(got, "s") || !strings.Contains(got, ".") {
		t.Errorf("elapsed() = %q, want seconds with one decimal", got)
	}
}
