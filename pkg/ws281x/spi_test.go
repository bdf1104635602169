// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package ws281x_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/Irradiant/lampion/pkg/ws281x"
)

func TestSPIPeripheral_RecordedWrites(t *testing.T) {
	var buf bytes.Buffer
	per, err := ws281x.NewSPIFromPort(spitest.NewRecordRaw(&buf), nil)
	require.NoError(t, err)

	require.NoError(t, per.WriteByte(ws281x.KickByte))
	require.NoError(t, per.WriteByte(ws281x.PatternHigh))
	require.NoError(t, per.WriteByte(ws281x.PatternLow))
	require.NoError(t, per.Flush())

	expected := append([]byte{0x00, 0xFF, 0xF0}, make([]byte, ws281x.DefaultLatchBytes)...)
	assert.Equal(t, expected, buf.Bytes())
}

func TestSPIPeripheral_CustomLatch(t *testing.T) {
	var buf bytes.Buffer
	per, err := ws281x.NewSPIFromPort(spitest.NewRecordRaw(&buf), &ws281x.SPIOpts{LatchBytes: 8})
	require.NoError(t, err)

	require.NoError(t, per.Flush())
	assert.Equal(t, make([]byte, 8), buf.Bytes())
}

func TestSPIPeripheral_TransmitterEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	per, err := ws281x.NewSPIFromPort(spitest.NewRecordRaw(&buf), &ws281x.SPIOpts{LatchBytes: 4})
	require.NoError(t, err)

	src := []byte{0x14, 0x0A, 0x1E}
	tx := ws281x.New(per, src)
	tx.Show()
	require.True(t, tx.WaitIdle(2*time.Second))

	// Kick and latch zeroes both decode away as filler
	decoded, err := ws281x.DecodePatterns(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, src, decoded)
}
