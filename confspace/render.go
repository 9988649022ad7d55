// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package confspace

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyulu/pciview/pverror"
)

// blockGap separates the field name block, the value block and the
// trailing register address of a table row.
const blockGap = "    "

const byteColumns = "|    Byte 0    |   Byte 1     |    Byte 2    |    Byte 3    |"

var (
	separatorBlock = "|" + strings.Repeat("-", 4*cellWidth+3) + "|"

	bannerLine    = byteColumns + blockGap + byteColumns
	separatorLine = separatorBlock + blockGap + separatorBlock
)

// RenderHeader writes the standardized header of one PCI function as
// an aligned fixed-width table. Every 4-byte register window becomes
// one row: the field names of the window on the left, the extracted
// values as zero padded hex on the right, the window's byte offset as
// trailing label. The output is assembled completely before anything
// is written, so a failing register read produces no partial table.
//
// Rendering is a pure pass over the register windows; decoding the
// same source twice yields identical text.
func RenderHeader(w io.Writer, layout *Layout, src DwordReader) error {
	var table strings.Builder

	table.WriteString(bannerLine + "\n")
	table.WriteString(separatorLine + blockGap + "Address\n")

	fields := layout.fields
	cursor := 0

	for win := uint(0); win < HeaderSize; win += 4 {
		table.WriteByte('|')

		start := cursor
		for cursor < len(fields) && fields[cursor].Offset < win+4 {
			f := fields[cursor]
			table.WriteString(centerLabel(f.Name, columnWidth(f.Width)))
			table.WriteByte('|')
			cursor++
		}

		raw, err := src.ReadDword(win)
		if err != nil {
			return pverror.E(ErrScope, ErrOpRenderHeader, err, fmt.Sprintf("register %#02x", win))
		}

		table.WriteString(blockGap)
		table.WriteByte('|')

		for i := start; i < len(fields) && fields[i].Offset < win+4; i++ {
			f := fields[i]
			if f.Width == sentinelWidth {
				break
			}

			table.WriteString(centerValue(extract(raw, win, f), f))
			table.WriteByte('|')
		}

		fmt.Fprintf(&table, "%s0x%02x\n", blockGap, win)
		table.WriteString(separatorLine + "\n")
	}

	_, err := io.WriteString(w, table.String())

	return err
}

// Field is one decoded register region.
type Field struct {
	Name   string `json:"name"`
	Offset uint   `json:"offset"`
	Width  uint   `json:"width"`
	Value  uint32 `json:"value"`
}

// DecodeHeader reads all register windows of the standardized header
// and returns the extracted field values in layout order. The
// terminating layout record is never extracted and does not appear in
// the result.
func DecodeHeader(layout *Layout, src DwordReader) ([]Field, error) {
	fields := layout.fields
	decoded := make([]Field, 0, len(fields)-1)
	cursor := 0

	for win := uint(0); win < HeaderSize; win += 4 {
		raw, err := src.ReadDword(win)
		if err != nil {
			return nil, pverror.E(ErrScope, ErrOpDecodeHeader, err, fmt.Sprintf("register %#02x", win))
		}

		for ; cursor < len(fields) && fields[cursor].Offset < win+4; cursor++ {
			f := fields[cursor]
			if f.Width == sentinelWidth {
				break
			}

			decoded = append(decoded, Field{
				Name:   f.Name,
				Offset: f.Offset,
				Width:  f.Width,
				Value:  extract(raw, win, f),
			})
		}
	}

	return decoded, nil
}

// extract pulls f's value out of the raw register read at window win.
// The mask is built on 64 bits so a 4-byte field shifted to the top
// of the window does not overflow.
func extract(raw uint32, win uint, f Bitfield) uint32 {
	shift := 8 * (f.Offset - win)
	mask := (uint64(1)<<(8*f.Width) - 1) << shift

	return uint32((uint64(raw) & mask) >> shift)
}

// centerLabel centers name in a column of the given width. The left
// padding gets the rounded-down half of the free space.
func centerLabel(name string, width int) string {
	pad := (width - len(name)) / 2

	return strings.Repeat(" ", pad) + name + strings.Repeat(" ", width-pad-len(name))
}

// centerValue positions the hex string of a field value inside its
// column. The left padding is computed from a content length of
// 2+width characters and the remainder of the column is filled on the
// right, which shifts values slightly right of center. This matches
// the label columns closely enough for the table to line up.
func centerValue(value uint32, f Bitfield) string {
	s := hexString(value, f.Width)
	width := columnWidth(f.Width)
	pad := (width - int(2+f.Width)) / 2

	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-pad-len(s))
}
