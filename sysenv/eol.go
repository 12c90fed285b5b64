package sysenv

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

// Releases older than these are end-of-life: nothing in the package
// repositories serves them anymore, so the run is refused before any
// operation resolves.
var eolConstraints = map[string]string{
	"ubuntu":   "< 16.4",
	"debian":   "< 9",
	"centos":   "< 7",
	"fedora":   "< 30",
	"amazon":   "< 2",
	"opensuse": "< 15",
	"freebsd":  "< 12",
	"alpine":   "< 3.10",
}

// CheckEOL is a pure function over the detected context. Rolling
// releases (no version) always pass.
func CheckEOL(c dispatch.Context) (err error) {
	raw, found := eolConstraints[c.Distro]
	if !found || c.Major == "" {
		return
	}

	constraint, err := semver.NewConstraint(raw)
	if err != nil {
		return fmt.Errorf("eol table entry for %s: %v", c.Distro, err)
	}

	minor := c.Minor
	if minor == "" {
		minor = "0"
	}

	v, err := semver.NewVersion(c.Major + "." + minor)
	if err != nil {
		return fmt.Errorf("version %s.%s: %v", c.Major, c.Minor, err)
	}

	if constraint.Check(v) {
		return fmt.Errorf("%s %s.%s reached end of life and is not supported",
			c.Distro, c.Major, minor)
	}
	return
}
