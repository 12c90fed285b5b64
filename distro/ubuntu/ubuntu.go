// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package ubuntu

import (
	"fmt"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/distro/debian"
	"code.dumpstack.io/tools/salt-bootstrap/gitsource"
	"code.dumpstack.io/tools/salt-bootstrap/service"
)

func init() {
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Kind: dispatch.InstallDeps, Handler: debian.Deps})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Major: "16", Type: dispatch.Stable, Kind: dispatch.InstallDeps,
		Handler: xenialDeps})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Git, Kind: dispatch.InstallDeps,
		Handler: debian.GitDeps})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Daily, Kind: dispatch.InstallDeps,
		Handler: dailyDeps})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Daily, Kind: dispatch.Install,
		Handler: installDaily})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Git, Kind: dispatch.Install,
		Handler: gitsource.InstallFromSource})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Type: dispatch.Git, Kind: dispatch.PostInstall,
		Handler: gitsource.InstallUnits})
	dispatch.Register(dispatch.Binding{Distro: "ubuntu",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

var codenames = map[string]string{
	"16.04": "xenial",
	"18.04": "bionic",
	"20.04": "focal",
	"22.04": "jammy",
	"24.04": "noble",
}

// xenial apt cannot talk to the https repository out of the box
func xenialDeps(e *dispatch.Env) (err error) {
	err = debian.Deps(e)
	if err != nil {
		return
	}

	return debian.Run([]string{
		"apt-get install -y apt-transport-https",
	})
}

func dailyDeps(e *dispatch.Env) (err error) {
	err = debian.Deps(e)
	if err != nil {
		return
	}

	return debian.Run([]string{
		"apt-get install -y software-properties-common",
	})
}

func installStable(e *dispatch.Env) (err error) {
	release := e.Context.Major
	if e.Context.Minor != "" {
		release += "." + e.Context.Minor
	}

	codename, found := codenames[release]
	if !found {
		return fmt.Errorf("no codename for ubuntu %s", release)
	}

	err = debian.ConfigureRepo(e, codename)
	if err != nil {
		return
	}

	return debian.InstallPackages(e)
}

func installDaily(e *dispatch.Env) (err error) {
	err = debian.Run([]string{
		"add-apt-repository -y ppa:saltstack/salt-daily",
		"apt-get update",
	})
	if err != nil {
		return
	}

	return debian.InstallPackages(e)
}
