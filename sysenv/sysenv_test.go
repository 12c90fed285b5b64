package sysenv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	for raw, expected := range map[string]string{
		"Ubuntu":                          "ubuntu",
		"CentOS Linux":                    "centos_linux",
		"Red Hat Enterprise Linux Server": "red_hat_enterprise_linux_server",
		"openSUSE Leap":                   "opensuse_leap",
		"Oracle Linux Server":             "oracle_linux_server",
		"Arch Linux":                      "arch_linux",
		"  Debian GNU/Linux ":             "debian_gnulinux",
		"alpine":                          "alpine",
	} {
		assert.Equal(expected, Normalize(raw), raw)
	}
}

func TestExtractVersion(t *testing.T) {
	assert := assert.New(t)

	for raw, expected := range map[string][2]string{
		"7.0":            {"7", "0"},
		"16.04":          {"16", "04"},
		"7.9.2009":       {"7", "9"},
		"12":             {"12", ""},
		"wheezy/sid":     {"7", ""},
		"bookworm":       {"12", ""},
		"rolling":        {"", ""},
		"":               {"", ""},
		"13.2-RELEASE":   {"13", "2"},
		"5.15.0-generic": {"5", "15"},
	} {
		major, minor := ExtractVersion(raw)
		assert.Equal(expected[0], major, raw)
		assert.Equal(expected[1], minor, raw)
	}
}

func TestApplyAlias(t *testing.T) {
	assert := assert.New(t)

	c := dispatch.Context{Distro: "ol", Major: "7", Minor: "9"}
	applyAlias(&c)
	assert.Equal("centos", c.Distro)
	assert.Equal("7", c.Major)

	// derivative with version remap
	c = dispatch.Context{Distro: "linuxmint", Major: "21"}
	applyAlias(&c)
	assert.Equal("ubuntu", c.Distro)
	assert.Equal("22", c.Major)
	assert.Equal("04", c.Minor)

	// unknown distros pass through untouched
	c = dispatch.Context{Distro: "fantasydistro", Major: "1"}
	applyAlias(&c)
	assert.Equal("fantasydistro", c.Distro)
}

func TestCheckEOL(t *testing.T) {
	assert := assert.New(t)

	assert.Error(CheckEOL(dispatch.Context{Distro: "centos", Major: "6"}))
	assert.NoError(CheckEOL(dispatch.Context{Distro: "centos", Major: "7"}))

	assert.Error(CheckEOL(dispatch.Context{Distro: "ubuntu", Major: "14", Minor: "04"}))
	assert.NoError(CheckEOL(dispatch.Context{Distro: "ubuntu", Major: "16", Minor: "04"}))

	// rolling releases have no version to be end-of-life
	assert.NoError(CheckEOL(dispatch.Context{Distro: "arch"}))

	// unknown distros are not our call to refuse
	assert.NoError(CheckEOL(dispatch.Context{Distro: "fantasydistro", Major: "1"}))
}

func TestOSRelease(t *testing.T) {
	assert := assert.New(t)

	name, version := fromOSRelease()
	// Either the host has /etc/os-release or it does not; both are
	// fine, but a hit must carry a name.
	if version != "" {
		assert.NotEmpty(name)
	}
}
