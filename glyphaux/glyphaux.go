// Package glyphaux hosts a [glyphglow.Stage] in a GLFW window and provides
// auxiliary rendering to STL and PNG files.
package glyphaux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/soypat/glyphglow"
	"github.com/soypat/glyphglow/forge/textmesh"
	"github.com/soypat/glyphglow/glrender"
)

// UIConfig configures the window of [UI]. Zero values are replaced by defaults.
type UIConfig struct {
	// Width and Height of the window in screen coordinates. Default 800x600.
	Width, Height int
	Title         string
	// Context cancels the UI loop when done.
	Context context.Context
	// NoVSync disables waiting on vertical sync on buffer swaps.
	NoVSync bool
	// Silent disables progress logging.
	Silent bool
}

func (cfg *UIConfig) setDefaults() {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.Title == "" {
		cfg.Title = "glyphglow"
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
}

// Aspect returns the aspect ratio of the window after applying defaults.
func (cfg UIConfig) Aspect() float32 {
	cfg.setDefaults()
	return float32(cfg.Width) / float32(cfg.Height)
}

// UI opens a window and clears it until a result arrives on results. The result
// resolves stage whose scene is then animated and drawn once per display refresh
// until the window is closed or the configured context is done.
// A window closed by the user is not an error.
// UI must be called from the main OS thread.
func UI(stage *glyphglow.Stage, results <-chan glyphglow.LoadResult, cfg UIConfig) error {
	if stage == nil {
		return errors.New("nil stage")
	} else if stage.Phase() != glyphglow.PhaseIdle {
		return glyphglow.ErrAlreadyRunning
	}
	cfg.setDefaults()
	err := ui(stage, results, cfg)
	if errors.Is(err, glyphglow.ErrDisplayClosed) {
		return nil
	}
	return err
}

// FontLoader returns a glyph loader that opens the font at location with [textmesh.Open]
// and configures it with ecfg.
func FontLoader(location string, ecfg textmesh.ExtrudeConfig) func(ctx context.Context) (glyphglow.GlyphMesher, error) {
	return func(ctx context.Context) (glyphglow.GlyphMesher, error) {
		font, err := textmesh.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		err = font.Configure(ecfg)
		if err != nil {
			return nil, err
		}
		return font, nil
	}
}

// WriteGlyphSTL extrudes c and writes the mesh to w in binary STL format.
func WriteGlyphSTL(w io.Writer, mesher glyphglow.GlyphMesher, c rune) error {
	mesh, err := mesher.ExtrudeGlyph(c)
	if err != nil {
		return err
	}
	_, err = glrender.WriteBinarySTL(w, mesh.Triangles)
	if err != nil {
		return fmt.Errorf("writing STL file: %w", err)
	}
	return nil
}

// WriteSceneSTL writes the objects of a scene to w in binary STL format with each
// object placed at its scene position.
func WriteSceneSTL(w io.Writer, scene *glyphglow.Scene) error {
	var mesh glrender.Mesh
	for _, o := range scene.Objects() {
		mesh.Triangles = append(mesh.Triangles, o.Mesh.Translate(o.Position).Triangles...)
	}
	_, err := glrender.WriteBinarySTL(w, mesh.Triangles)
	if err != nil {
		return fmt.Errorf("writing STL file: %w", err)
	}
	return nil
}

func logger(silent bool) func(args ...any) {
	return func(args ...any) {
		if !silent {
			log.Println(args...)
		}
	}
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
