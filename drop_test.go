// SPDX-License-Identifier: GPL-3.0-or-later

package replica_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/bassosimone/replica"
	"github.com/stretchr/testify/assert"
)

func TestDropCounter(t *testing.T) {
	pool := replica.NewPool()
	logs := &bytes.Buffer{}
	dc := replica.NewDropCounter(pool, slog.New(slog.NewTextHandler(logs, nil)))

	dc.Drop(pool.NewPacket(1, replica.DirectionDown, nil, nil), replica.DropInvalidReplicas, replica.ReasonInvalidReplicas)
	dc.Drop(pool.NewPacket(2, replica.DirectionDown, nil, nil), replica.DropInvalidReplicas, replica.ReasonInvalidReplicas)
	dc.Drop(pool.NewPacket(3, replica.DirectionDown, nil, nil), replica.DropInvalidSpacing, replica.ReasonInvalidSpacing)

	assert.Equal(t, uint64(2), dc.Count(replica.DropInvalidReplicas))
	assert.Equal(t, uint64(1), dc.Count(replica.DropInvalidSpacing))
	assert.Equal(t, uint64(3), dc.Total())
	assert.Zero(t, pool.Live())
	assert.Contains(t, logs.String(), "code=INVALID_SPACING")
}

func TestDropCodeString(t *testing.T) {
	assert.Equal(t, "INVALID_REPLICAS", replica.DropInvalidReplicas.String())
	assert.Equal(t, "INVALID_SPACING", replica.DropInvalidSpacing.String())
	assert.Equal(t, "UNKNOWN", replica.DropCode(0).String())
}
