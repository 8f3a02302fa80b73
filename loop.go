package glyphglow

import (
	"context"
	"errors"
	"fmt"
)

// Display paces the update loop, typically on vertical sync.
type Display interface {
	// WaitFrame blocks until the next frame may be drawn. It returns
	// [ErrDisplayClosed] when the output surface is closed.
	WaitFrame(ctx context.Context) error
}

// Renderer draws the full object set of a scene against its camera.
type Renderer interface {
	Render(s *Scene) error
}

// Run ticks the scene and renders it once per display frame. Every uniform update of
// a tick is applied before that tick's render. Run returns when ctx is done or a
// collaborator fails. A closed display ends the loop with [ErrDisplayClosed].
func Run(ctx context.Context, s *Scene, d Display, r Renderer) error {
	if s == nil {
		return errors.New("nil scene")
	} else if d == nil || r == nil {
		return errors.New("nil display or renderer")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := d.WaitFrame(ctx)
		if err != nil {
			return err
		}
		s.Tick()
		err = r.Render(s)
		if err != nil {
			return fmt.Errorf("rendering frame %d: %w", s.state.Frame, err)
		}
	}
}
