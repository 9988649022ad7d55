// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host exposes access to the PCI functions of the host
// machine through sysfs. It produces the register read capability the
// confspace decoder consumes.
package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/u-root/u-root/pkg/uio"
	"golang.org/x/sys/unix"

	"github.com/dyulu/pciview/confspace"
	"github.com/dyulu/pciview/pverror"
	"github.com/dyulu/pciview/pvlog"
)

// Operations used for raising Errors of this package.
const (
	ErrScope      pverror.Scope = pverror.Host
	ErrOpParseBDF pverror.Op    = "parse PCI address"
	ErrOpOpen     pverror.Op    = "open device"
	ErrOpRead     pverror.Op    = "read register"
)

// Errors which may be raised and wrapped in this package.
var (
	ErrInvalidBDF = errors.New("invalid PCI address")
	ErrShortRead  = errors.New("short config space read")
)

const (
	// SysfsPCIDevices is the sysfs directory holding one entry per
	// PCI function.
	SysfsPCIDevices = "/sys/bus/pci/devices"

	configFile = "config"

	// headerTypeRegister is the offset of the header type byte.
	headerTypeRegister = 0x0E

	maxBus      = 0xFF
	maxDevice   = 0x1F
	maxFunction = 0x7
)

// BDF addresses a single PCI function as domain:bus:device.function.
type BDF struct {
	Domain   uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// ParseBDF parses a PCI function address of the form "bus:device.function"
// or "domain:bus:device.function" with hexadecimal fields, e.g.
// "26:00.0" or "0000:26:00.0". A missing domain defaults to 0.
func ParseBDF(s string) (BDF, error) {
	var bdf BDF

	parts := strings.Split(s, ":")

	switch len(parts) {
	case 2:
	case 3:
		domain, err := strconv.ParseUint(parts[0], 16, 16)
		if err != nil {
			return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
		}

		bdf.Domain = uint16(domain)
		parts = parts[1:]
	default:
		return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
	}

	bus, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil || bus > maxBus {
		return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
	}

	devFn := strings.Split(parts[1], ".")
	if len(devFn) != 2 {
		return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
	}

	dev, err := strconv.ParseUint(devFn[0], 16, 8)
	if err != nil || dev > maxDevice {
		return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
	}

	fn, err := strconv.ParseUint(devFn[1], 16, 8)
	if err != nil || fn > maxFunction {
		return BDF{}, pverror.E(ErrScope, ErrOpParseBDF, ErrInvalidBDF, s)
	}

	bdf.Bus = uint8(bus)
	bdf.Device = uint8(dev)
	bdf.Function = uint8(fn)

	return bdf, nil
}

// String implements fmt.Stringer. The format matches the sysfs entry
// names under SysfsPCIDevices.
func (b BDF) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", b.Domain, b.Bus, b.Device, b.Function)
}

// Device is an open PCI function configuration space. It implements
// confspace.DwordReader.
type Device struct {
	Addr BDF
	file *os.File
}

// OpenDevice opens the sysfs config file of the PCI function at addr.
// Reading the standardized first 64 bytes needs no special
// privileges; the caller owns the returned Device and must Close it.
func OpenDevice(addr BDF) (*Device, error) {
	path := filepath.Join(SysfsPCIDevices, addr.String(), configFile)

	pvlog.Debug("host: opening %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, pverror.E(ErrScope, ErrOpOpen, err, addr.String())
	}

	return &Device{Addr: addr, file: f}, nil
}

// Close releases the underlying config file.
func (d *Device) Close() error {
	return d.file.Close()
}

// ReadDword implements confspace.DwordReader. The register offset is
// aligned down to the surrounding dword, like the port I/O config
// access mechanism does.
func (d *Device) ReadDword(offset uint) (uint32, error) {
	var raw [4]byte

	n, err := unix.Pread(int(d.file.Fd()), raw[:], int64(offset&^0x3))
	if err != nil {
		return 0, pverror.E(ErrScope, ErrOpRead, err, fmt.Sprintf("register %#02x", offset))
	}

	if n != len(raw) {
		return 0, pverror.E(ErrScope, ErrOpRead, ErrShortRead, fmt.Sprintf("register %#02x: %d bytes", offset, n))
	}

	buf := uio.NewLittleEndianBuffer(raw[:])
	value := buf.Read32()

	return value, buf.FinError()
}

// HeaderType reads the header type register. The value is reported as
// the device presents it; whether it names a supported layout is
// decided by confspace.LayoutForType.
func (d *Device) HeaderType() (confspace.HeaderType, error) {
	b, err := d.ReadRegisterByte(headerTypeRegister)

	return confspace.HeaderType(b), err
}

// ReadRegisterByte returns the single byte at reg, selected out of
// the surrounding aligned dword.
func (d *Device) ReadRegisterByte(reg uint) (uint8, error) {
	value, err := d.ReadDword(reg)

	return uint8(value >> ((reg & 0x3) * 8)), err
}

// ReadRegisterWord returns the 16-bit word holding reg.
func (d *Device) ReadRegisterWord(reg uint) (uint16, error) {
	value, err := d.ReadDword(reg)

	return uint16(value >> ((reg & 0x2) * 8)), err
}

// ReadRegisterDword returns the dword holding reg.
func (d *Device) ReadRegisterDword(reg uint) (uint32, error) {
	return d.ReadDword(reg)
}
