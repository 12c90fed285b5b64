// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

// Package redhat covers the rpm branch of the family tree: centos
// (which every enterprise clone normalizes to), amazon and fedora.
package redhat

import (
	"fmt"
	"os"
	"strings"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/gitsource"
	"code.dumpstack.io/tools/salt-bootstrap/saltrepo"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	for _, name := range []string{"centos", "amazon", "fedora"} {
		dispatch.Register(dispatch.Binding{Distro: name,
			Kind: dispatch.InstallDeps, Handler: Deps})
		dispatch.Register(dispatch.Binding{Distro: name,
			Type: dispatch.Stable, Kind: dispatch.Install,
			Handler: installFromRepo})
		dispatch.Register(dispatch.Binding{Distro: name,
			Type: dispatch.Testing, Kind: dispatch.Install,
			Handler: installFromRepo})
		dispatch.Register(dispatch.Binding{Distro: name,
			Kind: dispatch.PostInstall, Handler: service.EnableAll})
		dispatch.Register(dispatch.Binding{Distro: name,
			Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
	}

	// source builds are only supported where EPEL can provide the
	// python stack
	dispatch.Register(dispatch.Binding{Distro: "centos",
		Type: dispatch.Git, Kind: dispatch.InstallDeps,
		Handler: gitDeps})
	dispatch.Register(dispatch.Binding{Distro: "centos",
		Type: dispatch.Git, Kind: dispatch.Install,
		Handler: gitsource.InstallFromSource})
	dispatch.Register(dispatch.Binding{Distro: "centos",
		Type: dispatch.Git, Kind: dispatch.PostInstall,
		Handler: gitsource.InstallUnits})
}

var (
	keyPath  = "/etc/pki/rpm-gpg/SALT-PROJECT-GPG-PUBKEY"
	repoPath = "/etc/yum.repos.d/salt.repo"
)

func pkgMgr() string {
	if shell.Available("dnf") {
		return "dnf"
	}
	return "yum"
}

func run(commands []string) (err error) {
	for _, command := range commands {
		_, err = shell.Run("sh", "-c", command)
		if err != nil {
			return
		}
	}
	return
}

// Deps covers both package and repo bootstrap needs.
func Deps(e *dispatch.Env) (err error) {
	return run([]string{
		pkgMgr() + " install -y curl ca-certificates",
	})
}

func gitDeps(e *dispatch.Env) (err error) {
	python := e.Options.PythonVersion
	if python == "" {
		python = "python3"
	}

	var commands []string
	cmdf := func(f string, s ...interface{}) {
		commands = append(commands, fmt.Sprintf(f, s...))
	}

	cmdf("%s install -y epel-release", pkgMgr())
	cmdf("%s install -y git gcc %s %s-devel %s-setuptools",
		pkgMgr(), python, python, python)
	cmdf("%s install -y %s-pyyaml %s-jinja2 %s-msgpack "+
		"%s-pyzmq %s-requests",
		pkgMgr(), python, python, python, python, python)

	err = run(commands)
	if err != nil {
		return
	}

	_, err = gitsource.Checkout(e.Options.GitURL, e.Options.Version)
	return
}

// installFromRepo works for both the stable and the testing channel:
// the channel only changes the baseurl.
func installFromRepo(e *dispatch.Env) (err error) {
	err = configureRepo(e)
	if err != nil {
		return
	}

	pkgs := []string{}
	for _, role := range e.Options.Roles {
		pkg := "salt-" + role.String()
		if e.Options.Version != "" {
			pkg += "-" + e.Options.Version
		}
		pkgs = append(pkgs, pkg)
	}

	pkgs = append(pkgs, e.Options.ExtraPackages...)

	return run([]string{
		pkgMgr() + " install -y " + strings.Join(pkgs, " "),
	})
}

func configureRepo(e *dispatch.Env) (err error) {
	err = saltrepo.FetchKey(e, keyPath)
	if err != nil {
		return
	}

	err = os.WriteFile(repoPath, []byte(repoFile(e)), 0644)
	if err != nil {
		return
	}

	return run([]string{pkgMgr() + " clean expire-cache"})
}

func repoFile(e *dispatch.Env) string {
	return fmt.Sprintf("[salt]\n"+
		"name=Salt Project\n"+
		"baseurl=%s\n"+
		"enabled=1\n"+
		"gpgcheck=1\n"+
		"gpgkey=file://%s\n",
		saltrepo.Base(e), keyPath)
}
