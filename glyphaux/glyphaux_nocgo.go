//go:build tinygo || !cgo

package glyphaux

import (
	"errors"

	"github.com/soypat/glyphglow"
)

func ui(stage *glyphglow.Stage, results <-chan glyphglow.LoadResult, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
