// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package confspace

import (
	"errors"
	"fmt"

	"github.com/u-root/u-root/pkg/uio"

	"github.com/dyulu/pciview/pverror"
)

// Operations used for raising Errors of this package.
const (
	ErrOpNewConfigDump pverror.Op = "new config dump"
	ErrOpReadDword     pverror.Op = "read dword"
)

// Errors which may be raised and wrapped in this package.
var (
	ErrShortDump   = errors.New("configuration space dump too short")
	ErrBadRegister = errors.New("register offset out of range or unaligned")
)

// headerTypeRegister is the offset of the header type byte.
const headerTypeRegister = 0x0E

// DwordReader supplies 32-bit little-endian assembled register values
// from one PCI function's configuration space. Offset is in bytes and
// must be 4-byte aligned and below HeaderSize. The underlying
// transport (sysfs, port I/O, mmap) is the implementer's business.
type DwordReader interface {
	ReadDword(offset uint) (uint32, error)
}

// ConfigDump serves register reads from an in-memory copy of
// configuration space, such as the content of a sysfs config file or
// a saved dump.
type ConfigDump struct {
	data []byte
}

// NewConfigDump wraps a raw configuration space blob. The blob must
// hold at least the HeaderSize standardized bytes; it is copied, so
// later changes to data do not show up in reads.
func NewConfigDump(data []byte) (*ConfigDump, error) {
	if uint(len(data)) < HeaderSize {
		return nil, pverror.E(ErrScope, ErrOpNewConfigDump, ErrShortDump,
			fmt.Sprintf("%d bytes, want at least %d", len(data), HeaderSize))
	}

	return &ConfigDump{data: append([]byte(nil), data...)}, nil
}

// ReadDword implements DwordReader.
func (c *ConfigDump) ReadDword(offset uint) (uint32, error) {
	if offset%4 != 0 || offset+4 > uint(len(c.data)) {
		return 0, pverror.E(ErrScope, ErrOpReadDword, ErrBadRegister, fmt.Sprintf("offset %#x", offset))
	}

	buf := uio.NewLittleEndianBuffer(c.data[offset : offset+4])
	value := buf.Read32()

	return value, buf.FinError()
}

// HeaderType returns the header type byte of the dump.
func (c *ConfigDump) HeaderType() HeaderType {
	return HeaderType(c.data[headerTypeRegister])
}
