package common

import (
	"fmt"

	yerrors "yieldsplit/core/errors"
)

// ErrModulePaused is returned by Guard when an operator has paused a module.
var ErrModulePaused = yerrors.ErrModulePaused

// PauseView exposes the operator pause switches.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when module is paused. A nil view or empty
// module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
