// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package sysenv

import (
	"bufio"
	"errors"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zcalusic/sysinfo"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

// source probes one OS identity indicator. Sources are tried in
// order, the first one that yields a distro name wins.
type source func() (name, version string)

var sources = []source{
	fromSysinfo,
	fromOSRelease,
	fromLSBRelease,
	fromReleaseFiles,
}

// Detect sniffs the host once and returns the runtime context the
// resolver operates on. The install type is not a host fact and is
// left for the caller to set.
func Detect() (c dispatch.Context, err error) {
	var name, version string
	for _, src := range sources {
		name, version = src()
		if name != "" {
			break
		}
	}

	if name == "" {
		err = errors.New("cannot detect the host distribution")
		return
	}

	c.Name = name
	c.Distro = Normalize(name)
	c.Major, c.Minor = ExtractVersion(version)
	c.Arch = cpuArch()

	applyAlias(&c)

	log.Debug().
		Str("name", name).
		Str("distro", c.Distro).
		Str("major", c.Major).
		Str("minor", c.Minor).
		Str("arch", c.Arch).
		Msg("detected")
	return
}

// Normalize turns a vendor distro name into the canonical form used
// in handler names: lowercase ASCII, spaces become underscores, any
// other non-alphanumeric characters are stripped.
func Normalize(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case r == ' ':
			if !underscore && b.Len() > 0 {
				b.WriteRune('_')
				underscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func fromSysinfo() (name, version string) {
	var si sysinfo.SysInfo
	si.GetSysInfo()

	name = si.OS.Vendor
	version = si.OS.Version
	return
}

var osReleasePath = "/etc/os-release"

func fromOSRelease() (name, version string) {
	f, err := os.Open(osReleasePath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = strings.Trim(value, `"`)
		switch key {
		case "ID":
			name = value
		case "VERSION_ID":
			version = value
		}
	}
	return
}

func fromLSBRelease() (name, version string) {
	if !shell.Available("lsb_release") {
		return
	}

	output, err := shell.Run("lsb_release", "-sir")
	if err != nil {
		return
	}

	fields := strings.Fields(output)
	if len(fields) >= 1 {
		name = fields[0]
	}
	if len(fields) >= 2 {
		version = fields[1]
	}
	return
}

// legacy single-purpose release files, oldest detection mechanism
func fromReleaseFiles() (name, version string) {
	if runtime.GOOS == "freebsd" {
		version, _ = shell.Run("uname", "-r")
		return "freebsd", strings.TrimSpace(version)
	}

	for _, probe := range []struct {
		path string
		name string
	}{
		{"/etc/oracle-release", ""},
		{"/etc/centos-release", ""},
		{"/etc/redhat-release", ""},
		{"/etc/alpine-release", "alpine"},
		{"/etc/arch-release", "arch"},
		{"/etc/SuSE-release", ""},
		{"/etc/debian_version", "debian"},
	} {
		buf, err := os.ReadFile(probe.path)
		if err != nil {
			continue
		}

		content := strings.TrimSpace(string(buf))
		if probe.name != "" {
			return probe.name, content
		}

		// "CentOS Linux release 7.9.2009 (Core)" and alike
		name, version, _ = strings.Cut(content, " release ")
		return
	}
	return
}

func cpuArch() string {
	output, err := shell.Run("uname", "-m")
	if err == nil {
		return strings.TrimSpace(output)
	}

	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	}
	return runtime.GOARCH
}
