package sysenv

import (
	_ "embed"

	"github.com/naoina/toml"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

// The aliasing rules are data, not logic: see aliases.toml.
//
//go:embed aliases.toml
var rawAliases []byte

type alias struct {
	Name     string
	Base     string
	Versions map[string]string
}

var aliases = map[string]alias{}

func init() {
	var table struct {
		Alias []alias
	}

	err := toml.Unmarshal(rawAliases, &table)
	if err != nil {
		panic("sysenv: broken aliases.toml: " + err.Error())
	}

	for _, a := range table.Alias {
		if _, exist := aliases[a.Name]; exist {
			panic("sysenv: duplicate alias " + a.Name)
		}
		aliases[a.Name] = a
	}
}

// applyAlias rewrites a derivative distro onto its base, remapping
// the version when the table says so.
func applyAlias(c *dispatch.Context) {
	a, found := aliases[c.Distro]
	if !found {
		return
	}

	c.Distro = a.Base

	if remap, found := a.Versions[c.Major]; found {
		c.Major, c.Minor = ExtractVersion(remap)
	}
}
