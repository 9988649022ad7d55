// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

// pciview renders the standardized first 64 bytes of a PCI function's
// configuration space as an aligned table of field names and raw hex
// values. Registers are read from the function's sysfs config file or
// from a saved dump.

import (
	"log"
	"strconv"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/dyulu/pciview/pvlog"
)

const (
	// HelpText is the command line help.
	HelpText = "pciview decodes and renders PCI configuration space headers"

	logLevelHelp = "Log level: e 'error', w 'warn', i 'info', d 'debug'."
	deviceHelp   = "PCI function address, e.g. 26:00.0 or 0000:26:00.0"
)

var goversion string

var (
	logLevel = kingpin.Flag("loglevel", logLevelHelp).Default("info").String()
	klogOut  = kingpin.Flag("klog", "Log to the kernel syslog instead of stderr").Bool()

	show       = kingpin.Command("show", "Decode the standard configuration space header of a PCI function")
	showDevice = show.Arg("device", deviceHelp).String()
	showFile   = show.Flag("file", "Decode a raw configuration space dump instead of a device").ExistingFile()
	showType   = show.Flag("type", "Override the header type: 0 endpoint, 1 bridge").Default("-1").Int()
	showJSON   = show.Flag("json", "Print the decoded fields as JSON").Bool()

	read       = kingpin.Command("read", "Read one configuration register at dword, word and byte width")
	readDevice = read.Arg("device", deviceHelp).Required().String()
	readReg    = read.Arg("register", "Register offset, e.g. 0x0e").Required().String()
)

func main() {
	log.SetPrefix("pciview: ")
	log.SetFlags(0)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(goversion)
	kingpin.CommandLine.Help = HelpText

	cmd := kingpin.Parse()
	setLogLevel(*logLevel)

	if *klogOut {
		if err := pvlog.SetOutput(pvlog.KernelSyslog); err != nil {
			log.Fatal(err)
		}

		pvlog.Debug("logging to kernel syslog at level %d", pvlog.Level())
	}

	switch cmd {
	case show.FullCommand():
		if *showDevice == "" && *showFile == "" {
			log.Fatal("need a device address or --file, try --help")
		}

		if err := showCmd(*showDevice, *showFile, *showType, *showJSON); err != nil {
			log.Fatal(err)
		}

	case read.FullCommand():
		reg, err := strconv.ParseUint(*readReg, 0, 8)
		if err != nil {
			log.Fatalf("invalid register offset %q: %v", *readReg, err)
		}

		if err := readCmd(*readDevice, uint(reg)); err != nil {
			log.Fatal(err)
		}

	default:
		log.Fatal("command not found")
	}
}

func setLogLevel(level string) {
	switch level {
	case "e", "error":
		pvlog.SetLevel(pvlog.ErrorLevel)
	case "w", "warn":
		pvlog.SetLevel(pvlog.WarnLevel)
	case "i", "info":
		pvlog.SetLevel(pvlog.InfoLevel)
	case "d", "debug":
		pvlog.SetLevel(pvlog.DebugLevel)
	default:
		pvlog.SetLevel(pvlog.InfoLevel)
	}
}
