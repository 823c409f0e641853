// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"strconv"
	"strings"
)

// Command implements [PacketStage].
//
// The replicator understands the following commands, whose names are
// case insensitive:
//
// - getreplicas returns the number of replicas as a decimal integer;
//
// - getspacing returns the spacing with six decimal digits;
//
// - setreplicas <int> invokes [*Replicator.SetReplicas];
//
// - setspacing <float> invokes [*Replicator.SetSpacing].
//
// The setters never fail: a malformed value is parsed as zero and then
// clamped like any other value. Other commands are handled by [*BaseStage].
func (rx *Replicator) Command(args []string) (string, error) {
	switch len(args) {
	case 1:
		switch strings.ToLower(args[0]) {
		case "getreplicas":
			return strconv.Itoa(rx.Replicas()), nil
		case "getspacing":
			return strconv.FormatFloat(rx.Spacing(), 'f', 6, 64), nil
		}

	case 2:
		switch strings.ToLower(args[0]) {
		case "setreplicas":
			rx.SetReplicas(commandParseInt(args[1]))
			return "", nil
		case "setspacing":
			rx.SetSpacing(commandParseFloat(args[1]))
			return "", nil
		}
	}
	return rx.BaseStage.Command(args)
}

// commandParseInt parses a decimal integer returning zero on failure.
func commandParseInt(value string) int {
	out, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return out
}

// commandParseFloat parses a float returning zero on failure.
func commandParseFloat(value string) float64 {
	out, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return out
}
