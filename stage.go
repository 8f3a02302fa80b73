package glyphglow

import (
	"context"
	"errors"
	"fmt"
)

// Phase is the lifecycle phase of a [Stage].
type Phase uint8

const (
	// PhaseIdle waits on the glyph load. Nothing is animated.
	PhaseIdle Phase = iota
	// PhaseRunning has a built scene. It is terminal.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// LoadResult is the outcome of a glyph load.
type LoadResult struct {
	Mesher GlyphMesher
	Err    error
}

// Stage builds a scene once glyphs are loaded. The Idle to Running transition
// happens at most once. A Stage is not safe for concurrent use.
type Stage struct {
	cfg   SceneConfig
	phase Phase
	scene *Scene
}

// NewStage returns an idle stage that builds scenes with cfg.
func NewStage(cfg SceneConfig) *Stage {
	return &Stage{cfg: cfg}
}

// Phase returns the current phase.
func (st *Stage) Phase() Phase { return st.phase }

// Scene returns the scene built on resolve or nil while idle.
func (st *Stage) Scene() *Scene { return st.scene }

// Resolve builds the scene from a load result and enters the running phase.
// A failed load or scene build leaves the stage idle. Resolving a running stage returns [ErrAlreadyRunning].
func (st *Stage) Resolve(res LoadResult) (*Scene, error) {
	if st.phase == PhaseRunning {
		return nil, ErrAlreadyRunning
	}
	if res.Err != nil {
		return nil, fmt.Errorf("loading glyphs: %w", res.Err)
	}
	scene, err := NewScene(st.cfg, res.Mesher)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	st.scene = scene
	st.phase = PhaseRunning
	return scene, nil
}

// Await blocks until a load result arrives on results and resolves it, or ctx is done.
func (st *Stage) Await(ctx context.Context, results <-chan LoadResult) (*Scene, error) {
	if st.phase == PhaseRunning {
		return nil, ErrAlreadyRunning
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-results:
		if !ok {
			return nil, errNoLoadResult
		}
		return st.Resolve(res)
	}
}

// Poll resolves the stage if a load result is ready without blocking. ready is false
// when no result has arrived yet.
func (st *Stage) Poll(results <-chan LoadResult) (scene *Scene, ready bool, err error) {
	if st.phase == PhaseRunning {
		return nil, true, ErrAlreadyRunning
	}
	select {
	case res, ok := <-results:
		if !ok {
			return nil, true, errNoLoadResult
		}
		scene, err = st.Resolve(res)
		return scene, true, err
	default:
		return nil, false, nil
	}
}

var errNoLoadResult = errors.New("glyph load finished without result")

// LoadGlyphsAsync runs load once on its own goroutine. The returned channel delivers
// exactly one result and is then closed.
func LoadGlyphsAsync(ctx context.Context, load func(ctx context.Context) (GlyphMesher, error)) <-chan LoadResult {
	results := make(chan LoadResult, 1)
	go func() {
		defer close(results)
		if load == nil {
			results <- LoadResult{Err: errors.New("nil glyph loader")}
			return
		}
		mesher, err := load(ctx)
		if err == nil && mesher == nil {
			err = errors.New("glyph loader returned nil mesher")
		}
		results <- LoadResult{Mesher: mesher, Err: err}
	}()
	return results
}
