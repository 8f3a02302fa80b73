package glyphglow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStageResolveOnce(t *testing.T) {
	st := NewStage(SceneConfig{Variant: VariantPhong})
	if st.Phase() != PhaseIdle || st.Scene() != nil {
		t.Fatal("new stage must be idle without scene")
	}
	scene, err := st.Resolve(LoadResult{Mesher: &boxMesher{}})
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase() != PhaseRunning || st.Scene() != scene {
		t.Fatal("stage did not enter running phase")
	}
	_, err = st.Resolve(LoadResult{Mesher: &boxMesher{}})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("want ErrAlreadyRunning, got %v", err)
	}
	if st.Scene() != scene {
		t.Error("second resolve replaced the scene")
	}
}

func TestStageLoadFailure(t *testing.T) {
	st := NewStage(SceneConfig{})
	boom := errors.New("font unavailable")
	_, err := st.Resolve(LoadResult{Err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("want load error, got %v", err)
	}
	_, err = st.Resolve(LoadResult{Mesher: &boxMesher{err: boom}})
	if !errors.Is(err, boom) {
		t.Errorf("want mesher error, got %v", err)
	}
	if st.Phase() != PhaseIdle {
		t.Fatal("failed resolve must leave stage idle")
	}
	if _, err = st.Resolve(LoadResult{Mesher: &boxMesher{}}); err != nil {
		t.Fatal(err)
	}
}

func TestLoadGlyphsAsyncOneShot(t *testing.T) {
	var calls atomic.Int32
	results := LoadGlyphsAsync(context.Background(), func(ctx context.Context) (GlyphMesher, error) {
		calls.Add(1)
		return &boxMesher{}, nil
	})
	st := NewStage(SceneConfig{Variant: VariantFlat})
	scene, err := st.Await(context.Background(), results)
	if err != nil {
		t.Fatal(err)
	}
	if scene.Variant() != VariantFlat {
		t.Errorf("unexpected variant %s", scene.Variant())
	}
	if _, ok := <-results; ok {
		t.Error("expected channel closed after single result")
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times", calls.Load())
	}
	if _, err = st.Await(context.Background(), results); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("want ErrAlreadyRunning, got %v", err)
	}
}

func TestLoadGlyphsAsyncNilMesher(t *testing.T) {
	results := LoadGlyphsAsync(context.Background(), func(ctx context.Context) (GlyphMesher, error) {
		return nil, nil
	})
	res := <-results
	if res.Err == nil {
		t.Error("expected error for nil mesher")
	}
}

func TestAwaitCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st := NewStage(SceneConfig{})
	_, err := st.Await(ctx, make(chan LoadResult))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("want deadline exceeded, got %v", err)
	}
	if st.Phase() != PhaseIdle {
		t.Error("cancelled await must leave stage idle")
	}
}

func TestPoll(t *testing.T) {
	st := NewStage(SceneConfig{})
	results := make(chan LoadResult, 1)
	scene, ready, err := st.Poll(results)
	if ready || scene != nil || err != nil {
		t.Fatalf("want not ready, got %v %v %v", scene, ready, err)
	}
	results <- LoadResult{Mesher: &boxMesher{}}
	scene, ready, err = st.Poll(results)
	if !ready || scene == nil || err != nil {
		t.Fatalf("want scene, got %v %v %v", scene, ready, err)
	}
}
