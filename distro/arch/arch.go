// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package arch

import (
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/gitsource"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Kind: dispatch.InstallDeps, Handler: deps})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Type: dispatch.Git, Kind: dispatch.InstallDeps,
		Handler: gitDeps})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Type: dispatch.Git, Kind: dispatch.Install,
		Handler: gitsource.InstallFromSource})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Type: dispatch.Git, Kind: dispatch.PostInstall,
		Handler: gitsource.InstallUnits})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Kind: dispatch.PostInstall, Handler: service.EnableAll})
	dispatch.Register(dispatch.Binding{Distro: "arch",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

func pacman(args ...string) (err error) {
	_, err = shell.Run("pacman",
		append([]string{"--noconfirm"}, args...)...)
	return
}

func deps(e *dispatch.Env) (err error) {
	return pacman("-Sy", "curl")
}

func gitDeps(e *dispatch.Env) (err error) {
	err = pacman("-Sy", "git", "gcc", "python", "python-setuptools",
		"python-yaml", "python-jinja", "python-msgpack",
		"python-pyzmq", "python-requests")
	if err != nil {
		return
	}

	_, err = gitsource.Checkout(e.Options.GitURL, e.Options.Version)
	return
}

// arch is rolling, there is one salt package and one version of it
func installStable(e *dispatch.Env) (err error) {
	pkgs := append([]string{"salt"}, e.Options.ExtraPackages...)
	return pacman(append([]string{"-S"}, pkgs...)...)
}
