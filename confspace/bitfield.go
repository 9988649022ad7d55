// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package confspace decodes the standardized first 64 bytes of PCI
// configuration space. It interprets raw register dwords according to
// the header-type specific field layouts (Type 0 "Endpoint" and
// Type 1 "Bridge") and renders them as an aligned table next to the
// raw hex values.
//
// The package performs no hardware access itself. Raw register values
// are supplied through the DwordReader capability.
package confspace

import (
	"errors"
	"fmt"

	"github.com/dyulu/pciview/pverror"
	"github.com/dyulu/pciview/pvlog"
)

// Operations used for raising Errors of this package.
const (
	ErrScope          pverror.Scope = pverror.Confspace
	ErrOpLayoutFor    pverror.Op    = "select layout"
	ErrOpValidate     pverror.Op    = "validate layout"
	ErrOpRenderHeader pverror.Op    = "render header"
	ErrOpDecodeHeader pverror.Op    = "decode header"
)

// Errors which may be raised and wrapped in this package.
var (
	ErrUnsupportedHeaderType = errors.New("unsupported PCI header type")
	ErrInvalidLayout         = errors.New("invalid header layout")
)

const (
	// HeaderSize is the number of standardized configuration space
	// bytes covered by a header layout.
	HeaderSize uint = 0x40

	// sentinelWidth marks the terminating record of a layout.
	sentinelWidth uint = 5

	// cellWidth is the number of characters one field byte gets in the
	// rendered table. A field of width w is printed in a column of
	// cellWidth*w + w - 1 characters, the extra w-1 characters
	// standing in for the separators narrower fields would need.
	cellWidth = 14

	endMarker = "End"

	maxNameLen = 63
)

// HeaderType discriminates the PCI header layouts.
type HeaderType int

const (
	Endpoint HeaderType = 0
	Bridge   HeaderType = 1
)

// String implements fmt.Stringer.
func (t HeaderType) String() string {
	switch t {
	case Endpoint:
		return "Endpoint"
	case Bridge:
		return "Bridge"
	default:
		return fmt.Sprintf("unknown (%#x)", int(t))
	}
}

// Bitfield describes one named region of the configuration space
// header: its byte offset from the start of config space and its
// width in bytes (1 to 4). A width of sentinelWidth is reserved for
// the terminating record at offset HeaderSize.
type Bitfield struct {
	Name   string
	Offset uint
	Width  uint
}

// commonPrefix covers the first 16 bytes shared by the Type 0 and
// Type 1 headers.
var commonPrefix = []Bitfield{
	{"Vendor ID", 0x00, 2},
	{"Device ID", 0x02, 2},
	{"Command", 0x04, 2},
	{"Status", 0x06, 2},
	{"Revision ID", 0x08, 1},
	{"Class Code", 0x09, 3},
	{"Cache Line S", 0x0C, 1},
	{"Lat. Timer", 0x0D, 1},
	{"Header Type", 0x0E, 1},
	{"BIST", 0x0F, 1},
}

// endpointTail holds the Type 0 specific fields following the common
// prefix.
var endpointTail = []Bitfield{
	{"BAR 0", 0x10, 4},
	{"BAR 1", 0x14, 4},
	{"BAR 2", 0x18, 4},
	{"BAR 3", 0x1C, 4},
	{"BAR 4", 0x20, 4},
	{"BAR 5", 0x24, 4},
	{"Cardbus CIS Pointer", 0x28, 4},
	{"Subsystem Vendor ID", 0x2C, 2},
	{"Subsystem ID", 0x2E, 2},
	{"Expansion ROM Address", 0x30, 4},
	{"Cap. Pointer", 0x34, 1},
	{"Reserved", 0x35, 3},
	{"Reserved", 0x38, 4},
	{"IRQ", 0x3C, 1},
	{"IRQ Pin", 0x3D, 1},
	{"Min Gnt.", 0x3E, 1},
	{"Max Lat.", 0x3F, 1},
}

// bridgeTail holds the Type 1 (PCI-to-PCI bridge) specific fields
// following the common prefix.
var bridgeTail = []Bitfield{
	{"BAR 0", 0x10, 4},
	{"BAR 1", 0x14, 4},
	{"Primary Bus", 0x18, 1},
	{"Secondary Bus", 0x19, 1},
	{"Sub. Bus", 0x1A, 1},
	{"Sec Lat timer", 0x1B, 1},
	{"IO Base", 0x1C, 1},
	{"IO Limit", 0x1D, 1},
	{"Sec. Status", 0x1E, 2},
	{"Memory Limit", 0x20, 2},
	{"Memory Base", 0x22, 2},
	{"Pref. Memory Limit", 0x24, 2},
	{"Pref. Memory Base", 0x26, 2},
	{"Pref. Memory Base U", 0x28, 4},
	{"Pref. Memory Base L", 0x2C, 4},
	{"IO Base Upper", 0x30, 2},
	{"IO Limit Upper", 0x32, 2},
	{"Cap. Pointer", 0x34, 1},
	{"Reserved", 0x35, 3},
	{"Exp. ROM Base Addr", 0x38, 4},
	{"IRQ Line", 0x3C, 1},
	{"IRQ Pin", 0x3D, 1},
	{"Min Gnt.", 0x3E, 1},
	{"Max Lat.", 0x3F, 1},
}

// Layout is the ordered list of bitfields of one PCI header type. The
// two supported instances are constructed once at package
// initialization and never mutated.
type Layout struct {
	hdrType HeaderType
	fields  []Bitfield
}

var (
	// EndpointLayout describes the Type 0 header.
	EndpointLayout = newLayout(Endpoint, endpointTail)
	// BridgeLayout describes the Type 1 header.
	BridgeLayout = newLayout(Bridge, bridgeTail)
)

// newLayout composes the common prefix, the type specific tail and
// the terminating record into an immutable layout.
func newLayout(t HeaderType, tail []Bitfield) *Layout {
	fields := make([]Bitfield, 0, len(commonPrefix)+len(tail)+1)
	fields = append(fields, commonPrefix...)
	fields = append(fields, tail...)
	fields = append(fields, Bitfield{endMarker, HeaderSize, sentinelWidth})

	return &Layout{hdrType: t, fields: fields}
}

// LayoutForType returns the layout of the given header type. Header
// types other than Endpoint (0) and Bridge (1) are rejected with
// ErrUnsupportedHeaderType before any table lookup takes place.
func LayoutForType(t HeaderType) (*Layout, error) {
	switch t {
	case Endpoint:
		return EndpointLayout, nil
	case Bridge:
		return BridgeLayout, nil
	default:
		pvlog.Debug("layout: unknown PCI header type %#x", int(t))

		return nil, pverror.E(ErrScope, ErrOpLayoutFor, ErrUnsupportedHeaderType, t.String())
	}
}

// HeaderType returns the header type the layout describes.
func (l *Layout) HeaderType() HeaderType {
	return l.hdrType
}

// Fields returns a copy of the layout's bitfields, including the
// terminating record.
func (l *Layout) Fields() []Bitfield {
	return append([]Bitfield(nil), l.fields...)
}

// Validate checks the layout table invariants: fields sorted
// ascending by offset, no overlaps, the union of the field spans
// covering [0, HeaderSize) exactly, widths between 1 and 4 bytes, a
// single terminating record at HeaderSize and field names that fit
// into their table columns.
func (l *Layout) Validate() error {
	if len(l.fields) == 0 {
		return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout, "no fields")
	}

	var next uint

	for i, f := range l.fields {
		if i == len(l.fields)-1 {
			if f.Offset != HeaderSize || f.Width != sentinelWidth {
				return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
					fmt.Sprintf("missing terminating record, got %q at %#x", f.Name, f.Offset))
			}

			break
		}

		if f.Offset != next {
			return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
				fmt.Sprintf("field %q at %#x leaves a gap or overlap, expected offset %#x", f.Name, f.Offset, next))
		}

		if f.Width < 1 || f.Width > 4 {
			return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
				fmt.Sprintf("field %q has width %d", f.Name, f.Width))
		}

		if len(f.Name) == 0 || len(f.Name) > maxNameLen {
			return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
				fmt.Sprintf("field at %#x has a name of %d characters", f.Offset, len(f.Name)))
		}

		if len(f.Name) > columnWidth(f.Width) {
			return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
				fmt.Sprintf("name %q does not fit a %d byte column", f.Name, f.Width))
		}

		next += f.Width
	}

	if next != HeaderSize {
		return pverror.E(ErrScope, ErrOpValidate, ErrInvalidLayout,
			fmt.Sprintf("fields cover %#x of %#x bytes", next, HeaderSize))
	}

	return nil
}

// columnWidth is the number of characters a field of the given byte
// width occupies in the rendered table.
func columnWidth(width uint) int {
	return cellWidth*int(width) + int(width) - 1
}
