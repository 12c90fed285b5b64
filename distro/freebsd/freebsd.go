// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package freebsd

import (
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	dispatch.Register(dispatch.Binding{Distro: "freebsd",
		Kind: dispatch.InstallDeps, Handler: deps})
	dispatch.Register(dispatch.Binding{Distro: "freebsd",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "freebsd",
		Kind: dispatch.PostInstall, Handler: service.EnableAll})
	dispatch.Register(dispatch.Binding{Distro: "freebsd",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

var pkgEnv = []string{"ASSUME_ALWAYS_YES=YES"}

func deps(e *dispatch.Env) (err error) {
	_, err = shell.RunEnv(pkgEnv, "pkg", "update", "-f")
	if err != nil {
		return
	}
	_, err = shell.RunEnv(pkgEnv, "pkg", "install", "ca_root_nss", "curl")
	return
}

// installStable installs the ports package. One package covers all
// roles, the rc scripts select what actually runs.
func installStable(e *dispatch.Env) (err error) {
	pkgs := append([]string{"py311-salt"}, e.Options.ExtraPackages...)
	_, err = shell.RunEnv(pkgEnv, "pkg",
		append([]string{"install"}, pkgs...)...)
	return
}
