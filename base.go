// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// BaseStage contains the identity and the logger shared by stages and
// implements the generic control commands.
//
// Construct using [NewBaseStage].
type BaseStage struct {
	// ID uniquely identifies this stage instance.
	ID uuid.UUID

	// Logger is bound to the stage name and ID.
	Logger *slog.Logger

	// Name is the stage name.
	Name string
}

// NewBaseStage creates a new [*BaseStage].
//
// When logger is nil, the stage does not log.
func NewBaseStage(name string, logger *slog.Logger) *BaseStage {
	if logger == nil {
		logger = stageDiscardLogger
	}
	id := uuid.Must(uuid.NewV7())
	return &BaseStage{
		ID:     id,
		Logger: logger.With(slog.String("stage", name), slog.String("stageID", id.String())),
		Name:   name,
	}
}

// Command implements the generic control commands:
//
// - getname returns the stage name;
//
// - getid returns the stage ID.
//
// Any other command fails with [ErrUnknownCommand].
func (bs *BaseStage) Command(args []string) (string, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "getname":
			return bs.Name, nil
		case "getid":
			return bs.ID.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(args, " "))
}
