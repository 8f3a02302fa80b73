// Package glyphglow builds and animates a small scene of two extruded glyphs lit by
// a glowing transparent cube. Scene construction waits on an asynchronous glyph load
// after which a per frame update loop advances animation uniforms and renders.
//
// The package holds the shading models, scene state and the update loop. Windowing and
// GPU rendering live in glyphaux so the core can be exercised without a GL context.
package glyphglow

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// TimeStep is the amount the time uniform advances every tick.
const TimeStep = 0.05

// Scene glyphs and their fixed horizontal offsets.
const (
	GlyphLeft    = 'e'
	GlyphRight   = '4'
	GlyphOffsetX = 2
)

// Scene colors.
const (
	ColorLime             = 0xcdff7c
	ColorPurple           = 0x320083
	GlyphAmbientIntensity = 0.224
)

var (
	// ErrAlreadyRunning is returned when a stage is resolved a second time.
	ErrAlreadyRunning = errors.New("glyphglow: stage already running")
	// ErrDisplayClosed is returned by a Display when the output surface was closed by the user.
	ErrDisplayClosed = errors.New("glyphglow: display closed")
)

// RGB converts a 24 bit 0xRRGGBB color to components in 0..1.
func RGB(hex uint32) ms3.Vec {
	return ms3.Vec{
		X: float32((hex>>16)&0xff) / 255,
		Y: float32((hex>>8)&0xff) / 255,
		Z: float32(hex&0xff) / 255,
	}
}

// Variant selects one of the scene configurations.
type Variant uint8

const (
	// VariantPhong lights the glyphs with two Phong-like materials and adds an intense glow cube.
	VariantPhong Variant = iota
	// VariantPhongSubtle is VariantPhong with a dimmer, slower fading glow.
	VariantPhongSubtle
	// VariantFlat colors each glyph with a constant color. There is no glow cube.
	VariantFlat
	// VariantGradient colors both glyphs by position with one shared material. There is no glow cube.
	VariantGradient
	numVariants
)

var variantNames = [numVariants]string{
	VariantPhong:       "phong",
	VariantPhongSubtle: "phong-subtle",
	VariantFlat:        "flat",
	VariantGradient:    "gradient",
}

func (v Variant) String() string {
	if v >= numVariants {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return variantNames[v]
}

// HasGlow reports whether scenes of the variant contain the glow cube.
func (v Variant) HasGlow() bool {
	return v == VariantPhong || v == VariantPhongSubtle
}

// Variants returns all valid variants.
func Variants() []Variant {
	return []Variant{VariantPhong, VariantPhongSubtle, VariantFlat, VariantGradient}
}

// ParseVariant returns the variant named s.
func ParseVariant(s string) (Variant, error) {
	for v, name := range variantNames {
		if name == s {
			return Variant(v), nil
		}
	}
	return 0, fmt.Errorf("unknown variant %q, want one of %v", s, variantNames)
}
