package glbuild

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translatorMu sync.Mutex
	translator   *gst.ShaderTranslator
)

// Translated holds a program translated to the desktop GLSL 4.10 dialect.
type Translated struct {
	Vertex   string
	Fragment string
	// Names maps uniform names in the written source to their names in the translated source.
	Names map[string]string
}

// MappedName returns the translated name of a uniform. Names absent from the mapping are returned unchanged.
func (t *Translated) MappedName(name string) string {
	if mapped, ok := t.Names[name]; ok && mapped != "" {
		return mapped
	}
	return name
}

// Translate converts the GLSL ES 3.00 sources written by [Programmer] to desktop GLSL 4.10.
// The translator is instantiated on first use and reused across calls.
func Translate(ctx context.Context, vertex, fragment string) (Translated, error) {
	tr, err := getTranslator(ctx)
	if err != nil {
		return Translated{}, err
	}
	vs, err := tr.TranslateShader(vertex, "vertex", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return Translated{}, fmt.Errorf("vertex shader translation failed: %w", err)
	}
	fs, err := tr.TranslateShader(fragment, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return Translated{}, fmt.Errorf("fragment shader translation failed: %w", err)
	}
	t := Translated{
		Vertex:   vs.Code,
		Fragment: fs.Code,
		Names:    make(map[string]string, len(vs.Variables)+len(fs.Variables)),
	}
	for name, v := range vs.Variables {
		t.Names[name] = v.MappedName
	}
	for name, v := range fs.Variables {
		t.Names[name] = v.MappedName
	}
	return t, nil
}

func getTranslator(ctx context.Context) (*gst.ShaderTranslator, error) {
	translatorMu.Lock()
	defer translatorMu.Unlock()
	if translator != nil {
		return translator, nil
	}
	tr, err := gst.NewShaderTranslator(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating shader translator: %w", err)
	}
	translator = tr
	return translator, nil
}
