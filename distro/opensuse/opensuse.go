// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package opensuse

import (
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	dispatch.Register(dispatch.Binding{Distro: "opensuse",
		Kind: dispatch.InstallDeps, Handler: deps})
	dispatch.Register(dispatch.Binding{Distro: "opensuse",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "opensuse",
		Kind: dispatch.PostInstall, Handler: service.EnableAll})
	dispatch.Register(dispatch.Binding{Distro: "opensuse",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

func zypper(args ...string) (err error) {
	args = append([]string{"--non-interactive",
		"--gpg-auto-import-keys"}, args...)
	_, err = shell.Run("zypper", args...)
	return
}

func deps(e *dispatch.Env) (err error) {
	err = zypper("refresh")
	if err != nil {
		return
	}
	return zypper("install", "curl", "ca-certificates")
}

// installStable uses the distribution's own salt packages: openSUSE
// ships salt in the main repositories, no extra repo is needed.
func installStable(e *dispatch.Env) (err error) {
	pkgs := []string{}
	for _, role := range e.Options.Roles {
		pkg := "salt-" + role.String()
		if e.Options.Version != "" {
			pkg += "=" + e.Options.Version
		}
		pkgs = append(pkgs, pkg)
	}

	pkgs = append(pkgs, e.Options.ExtraPackages...)

	return zypper(append([]string{"install"}, pkgs...)...)
}
