//go:build !tinygo && cgo

package glyphaux

import (
	"context"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glyphglow"
)

func ui(stage *glyphglow.Stage, results <-chan glyphglow.LoadResult, cfg UIConfig) error {
	log := logger(cfg.Silent)
	window, term, err := startGLFW(cfg)
	if err != nil {
		return err
	}
	defer term()
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	ctx := cfg.Context
	display := &glfwDisplay{window: window}

	// Idle: clear frames until the glyphs are loaded.
	watch := stopwatch()
	var scene *glyphglow.Scene
	for scene == nil {
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		err = display.WaitFrame(ctx)
		if err != nil {
			return err
		}
		var ready bool
		scene, ready, err = stage.Poll(results)
		if err != nil {
			return err
		} else if ready && scene == nil {
			return fmt.Errorf("stage resolved without scene")
		}
	}
	log("loaded glyphs in", watch())

	width, height := window.GetFramebufferSize()
	renderer, err := newGLRenderer(ctx, scene, width, height, log)
	if err != nil {
		return err
	}
	defer renderer.Delete()
	log("running", scene.Variant(), "scene")
	return glyphglow.Run(ctx, scene, display, renderer)
}

// glfwDisplay presents the previous frame and processes window events on every wait.
type glfwDisplay struct {
	window *glfw.Window
}

// WaitFrame implements [glyphglow.Display]. With a swap interval of 1 the buffer swap blocks until vertical sync.
func (d *glfwDisplay) WaitFrame(ctx context.Context) error {
	d.window.SwapBuffers()
	glfw.PollEvents()
	if d.window.ShouldClose() {
		return glyphglow.ErrDisplayClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func startGLFW(cfg UIConfig) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if cfg.NoVSync {
		glfw.SwapInterval(0)
	} else {
		glfw.SwapInterval(1)
	}
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
