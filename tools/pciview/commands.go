// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/dyulu/pciview/confspace"
	"github.com/dyulu/pciview/host"
	"github.com/dyulu/pciview/pvlog"
)

func showCmd(device, file string, typeOverride int, asJSON bool) error {
	var (
		src     confspace.DwordReader
		hdrType confspace.HeaderType
		name    string
	)

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return err
		}

		dump, err := confspace.NewConfigDump(raw)
		if err != nil {
			return err
		}

		src = dump
		hdrType = dump.HeaderType()
		name = file
	} else {
		bdf, err := host.ParseBDF(device)
		if err != nil {
			return err
		}

		dev, err := host.OpenDevice(bdf)
		if err != nil {
			return err
		}
		defer dev.Close()

		src = dev

		hdrType, err = dev.HeaderType()
		if err != nil {
			return err
		}

		name = bdf.String()
	}

	if typeOverride >= 0 {
		pvlog.Debug("show: header type forced to %#x", typeOverride)

		hdrType = confspace.HeaderType(typeOverride)
	}

	layout, err := confspace.LayoutForType(hdrType)
	if err != nil {
		return err
	}

	if asJSON {
		fields, err := confspace.DecodeHeader(layout, src)
		if err != nil {
			return err
		}

		buf, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(buf))

		return nil
	}

	article := "a"
	if layout.HeaderType() == confspace.Endpoint {
		article = "an"
	}

	fmt.Printf("Selected device %s is %s %s\n", name, article, layout.HeaderType())

	return confspace.RenderHeader(os.Stdout, layout, src)
}

func readCmd(device string, reg uint) error {
	bdf, err := host.ParseBDF(device)
	if err != nil {
		return err
	}

	dev, err := host.OpenDevice(bdf)
	if err != nil {
		return err
	}
	defer dev.Close()

	dword, err := dev.ReadRegisterDword(reg)
	if err != nil {
		return err
	}

	word, err := dev.ReadRegisterWord(reg)
	if err != nil {
		return err
	}

	b, err := dev.ReadRegisterByte(reg)
	if err != nil {
		return err
	}

	fmt.Printf("reg %02x: %08x\n", reg, dword)
	fmt.Printf("reg %02x: %04x\n", reg, word)
	fmt.Printf("reg %02x: %02x\n", reg, b)

	return nil
}
