// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import "errors"

// ErrUnknownCommand indicates that no handler recognized a control command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrUnknownStage indicates that a [*Registry] has no factory for a name.
var ErrUnknownStage = errors.New("unknown stage")

// ErrDuplicateStage indicates that a [*Registry] already has a factory for a name.
var ErrDuplicateStage = errors.New("duplicate stage")
