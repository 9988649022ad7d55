// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package confspace

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// endpointSampleTable is the rendered standard header of a PLX
// switch endpoint (10b5:1009), reproduced from a live capture.
const endpointSampleTable = `|    Byte 0    |   Byte 1     |    Byte 2    |    Byte 3    |    |    Byte 0    |   Byte 1     |    Byte 2    |    Byte 3    |
|-----------------------------------------------------------|    |-----------------------------------------------------------|    Address
|          Vendor ID          |          Device ID          |    |            0x10B5           |            0x1009           |    0x00
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|           Command           |           Status            |    |            0x0007           |            0x0010           |    0x04
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Revision ID  |                 Class Code                 |    |     0xB0     |                   0x000880                 |    0x08
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Cache Line S |  Lat. Timer  | Header Type  |     BIST     |    |     0x08     |     0x00     |     0x00     |     0x00     |    0x0c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 0                           |    |                          0xC2000000                       |    0x10
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 1                           |    |                          0x00000000                       |    0x14
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 2                           |    |                          0x00000000                       |    0x18
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 3                           |    |                          0x00000000                       |    0x1c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 4                           |    |                          0x00000000                       |    0x20
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 5                           |    |                          0x00000000                       |    0x24
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                    Cardbus CIS Pointer                    |    |                          0x00000000                       |    0x28
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|     Subsystem Vendor ID     |        Subsystem ID         |    |            0x10B5           |            0x9781           |    0x2c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                   Expansion ROM Address                   |    |                          0x00000000                       |    0x30
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Cap. Pointer |                  Reserved                  |    |     0x40     |                   0x000000                 |    0x34
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                         Reserved                          |    |                          0x00000000                       |    0x38
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|     IRQ      |   IRQ Pin    |   Min Gnt.   |   Max Lat.   |    |     0xFF     |     0x01     |     0x00     |     0x00     |    0x3c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
`

// bridgeSampleTable is the rendered standard header of the upstream
// bridge port of the same switch.
const bridgeSampleTable = `|    Byte 0    |   Byte 1     |    Byte 2    |    Byte 3    |    |    Byte 0    |   Byte 1     |    Byte 2    |    Byte 3    |
|-----------------------------------------------------------|    |-----------------------------------------------------------|    Address
|          Vendor ID          |          Device ID          |    |            0x10B5           |            0x9781           |    0x00
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|           Command           |           Status            |    |            0x0547           |            0x0010           |    0x04
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Revision ID  |                 Class Code                 |    |     0xB0     |                   0x000604                 |    0x08
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Cache Line S |  Lat. Timer  | Header Type  |     BIST     |    |     0x08     |     0x00     |     0x01     |     0x00     |    0x0c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 0                           |    |                          0x00000000                       |    0x10
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                           BAR 1                           |    |                          0x00000000                       |    0x14
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Primary Bus  |Secondary Bus |   Sub. Bus   |Sec Lat timer |    |     0x17     |     0x18     |     0x26     |     0x00     |    0x18
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|   IO Base    |   IO Limit   |         Sec. Status         |    |     0xF1     |     0x01     |            0x0000           |    0x1c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|        Memory Limit         |         Memory Base         |    |            0xC200           |            0xC580           |    0x20
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|     Pref. Memory Limit      |      Pref. Memory Base      |    |            0xF001           |            0xFEF1           |    0x24
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                    Pref. Memory Base U                    |    |                          0x000000D7                       |    0x28
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                    Pref. Memory Base L                    |    |                          0x000000D7                       |    0x2c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|        IO Base Upper        |       IO Limit Upper        |    |            0x0000           |            0x0000           |    0x30
|-----------------------------------------------------------|    |-----------------------------------------------------------|
| Cap. Pointer |                  Reserved                  |    |     0x40     |                   0x000000                 |    0x34
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|                    Exp. ROM Base Addr                     |    |                          0x00000000                       |    0x38
|-----------------------------------------------------------|    |-----------------------------------------------------------|
|   IRQ Line   |   IRQ Pin    |   Min Gnt.   |   Max Lat.   |    |     0xFF     |     0x01     |     0x13     |     0x00     |    0x3c
|-----------------------------------------------------------|    |-----------------------------------------------------------|
`

func dumpFromDwords(t *testing.T, dwords map[uint]uint32) *ConfigDump {
	t.Helper()

	raw := make([]byte, HeaderSize)
	for off, val := range dwords {
		binary.LittleEndian.PutUint32(raw[off:off+4], val)
	}

	dump, err := NewConfigDump(raw)
	require.NoError(t, err)

	return dump
}

func endpointSampleDump(t *testing.T) *ConfigDump {
	t.Helper()

	return dumpFromDwords(t, map[uint]uint32{
		0x00: 0x100910B5, // Vendor 0x10B5, Device 0x1009
		0x04: 0x00100007, // Command 0x0007, Status 0x0010
		0x08: 0x000880B0, // Revision 0xB0, Class Code 0x000880
		0x0C: 0x00000008, // Cache Line 0x08
		0x10: 0xC2000000, // BAR 0
		0x2C: 0x978110B5, // Subsystem Vendor 0x10B5, Subsystem ID 0x9781
		0x34: 0x00000040, // Cap. Pointer 0x40
		0x3C: 0x000001FF, // IRQ 0xFF, IRQ Pin 0x01
	})
}

func bridgeSampleDump(t *testing.T) *ConfigDump {
	t.Helper()

	return dumpFromDwords(t, map[uint]uint32{
		0x00: 0x978110B5,
		0x04: 0x00100547,
		0x08: 0x000604B0,
		0x0C: 0x00010008, // Header Type 0x01
		0x18: 0x00261817, // Primary 0x17, Secondary 0x18, Sub. 0x26
		0x1C: 0x000001F1,
		0x20: 0xC580C200,
		0x24: 0xFEF1F001,
		0x28: 0x000000D7,
		0x2C: 0x000000D7,
		0x34: 0x00000040,
		0x3C: 0x001301FF,
	})
}

func TestRenderHeaderEndpointSample(t *testing.T) {
	dump := endpointSampleDump(t)

	var got strings.Builder
	err := RenderHeader(&got, EndpointLayout, dump)
	require.NoError(t, err)

	assert.Equal(t, endpointSampleTable, got.String())
}

func TestRenderHeaderBridgeSample(t *testing.T) {
	dump := bridgeSampleDump(t)

	var got strings.Builder
	err := RenderHeader(&got, BridgeLayout, dump)
	require.NoError(t, err)

	assert.Equal(t, bridgeSampleTable, got.String())
}

func TestRenderHeaderIdempotent(t *testing.T) {
	dump := endpointSampleDump(t)

	var first, second strings.Builder
	require.NoError(t, RenderHeader(&first, EndpointLayout, dump))
	require.NoError(t, RenderHeader(&second, EndpointLayout, dump))

	assert.Equal(t, first.String(), second.String())
}

func TestRenderHeaderAllOnes(t *testing.T) {
	// A hidden or absent function reads as all-1s. That is valid
	// input and must render verbatim.
	raw := make([]byte, HeaderSize)
	for i := range raw {
		raw[i] = 0xFF
	}

	dump, err := NewConfigDump(raw)
	require.NoError(t, err)

	var got strings.Builder
	require.NoError(t, RenderHeader(&got, EndpointLayout, dump))

	assert.Contains(t, got.String(), "0xFFFF")
	assert.Contains(t, got.String(), "0xFFFFFFFF")
}

type failingSource struct {
	failAt uint
	dump   *ConfigDump
}

func (s *failingSource) ReadDword(offset uint) (uint32, error) {
	if offset == s.failAt {
		return 0, ErrBadRegister
	}

	return s.dump.ReadDword(offset)
}

func TestRenderHeaderSourceError(t *testing.T) {
	src := &failingSource{failAt: 0x10, dump: endpointSampleDump(t)}

	var got strings.Builder
	err := RenderHeader(&got, EndpointLayout, src)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRegister)
	assert.Empty(t, got.String(), "a failing read must not produce partial output")
}

func TestDecodeHeaderVendorDevice(t *testing.T) {
	fields, err := DecodeHeader(EndpointLayout, endpointSampleDump(t))
	require.NoError(t, err)

	byName := map[string]uint32{}
	for _, f := range fields {
		byName[f.Name] = f.Value
	}

	assert.Equal(t, uint32(0x10B5), byName["Vendor ID"])
	assert.Equal(t, uint32(0x1009), byName["Device ID"])
	assert.Equal(t, uint32(0x000880), byName["Class Code"])
	assert.Equal(t, uint32(0xC2000000), byName["BAR 0"])
	assert.Equal(t, uint32(0x9781), byName["Subsystem ID"])
}

func TestDecodeHeaderBridgeBusNumbers(t *testing.T) {
	fields, err := DecodeHeader(BridgeLayout, bridgeSampleDump(t))
	require.NoError(t, err)

	byName := map[string]uint32{}
	for _, f := range fields {
		byName[f.Name] = f.Value
	}

	assert.Equal(t, uint32(0x17), byName["Primary Bus"])
	assert.Equal(t, uint32(0x18), byName["Secondary Bus"])
	assert.Equal(t, uint32(0x26), byName["Sub. Bus"])
	assert.Equal(t, uint32(0x00), byName["Sec Lat timer"])
}

func TestDecodeHeaderOmitsSentinel(t *testing.T) {
	for _, layout := range []*Layout{EndpointLayout, BridgeLayout} {
		fields, err := DecodeHeader(layout, endpointSampleDump(t))
		require.NoError(t, err)

		assert.Len(t, fields, len(layout.fields)-1)
		for _, f := range fields {
			assert.NotEqual(t, sentinelWidth, f.Width)
			assert.NotEqual(t, endMarker, f.Name)
		}
	}
}

func TestDecodeHeaderSourceError(t *testing.T) {
	src := &failingSource{failAt: 0x3C, dump: endpointSampleDump(t)}

	_, err := DecodeHeader(EndpointLayout, src)
	assert.ErrorIs(t, err, ErrBadRegister)
}

func TestExtract(t *testing.T) {
	for _, tt := range []struct {
		name  string
		raw   uint32
		win   uint
		field Bitfield
		want  uint32
	}{
		{
			name:  "low word",
			raw:   0x100910B5,
			win:   0x00,
			field: Bitfield{"Vendor ID", 0x00, 2},
			want:  0x10B5,
		},
		{
			name:  "high word",
			raw:   0x100910B5,
			win:   0x00,
			field: Bitfield{"Device ID", 0x02, 2},
			want:  0x1009,
		},
		{
			name:  "full dword keeps top bit",
			raw:   0xC2000000,
			win:   0x10,
			field: Bitfield{"BAR 0", 0x10, 4},
			want:  0xC2000000,
		},
		{
			name:  "single byte at window top",
			raw:   0x26181817,
			win:   0x18,
			field: Bitfield{"Sec Lat timer", 0x1B, 1},
			want:  0x26,
		},
		{
			name:  "three bytes above the first",
			raw:   0x000880B0,
			win:   0x08,
			field: Bitfield{"Class Code", 0x09, 3},
			want:  0x000880,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract(tt.raw, tt.win, tt.field))
		})
	}
}
