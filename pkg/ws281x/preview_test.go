// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irradiant/lampion/pkg/ws281x"
)

func TestPreview_DrawsFlushedFrame(t *testing.T) {
	per := ws281x.NewPreview(2)

	tx := ws281x.New(per, []byte{0x14, 0x0A, 0x1E, 0x00, 0xFF, 0x00})
	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))
	assert.NoError(t, per.Close())
}

func TestPreview_RejectsCorruptStream(t *testing.T) {
	per := ws281x.NewPreview(1)

	require.NoError(t, per.WriteByte(0xAB))
	assert.Error(t, per.Flush(), "an unrecognized pattern byte must fail the frame")
}
