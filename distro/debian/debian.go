// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package debian

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
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Kind: dispatch.InstallDeps, Handler: Deps})
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Type: dispatch.Git, Kind: dispatch.InstallDeps,
		Handler: GitDeps})
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Type: dispatch.Git, Kind: dispatch.Install,
		Handler: gitsource.InstallFromSource})
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Type: dispatch.Git, Kind: dispatch.PostInstall,
		Handler: gitsource.InstallUnits})
	dispatch.Register(dispatch.Binding{Distro: "debian",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

var codenames = map[string]string{
	"9":  "stretch",
	"10": "buster",
	"11": "bullseye",
	"12": "bookworm",
	"13": "trixie",
}

var (
	keyringPath = "/usr/share/keyrings/salt-archive-keyring.gpg"
	sourcesPath = "/etc/apt/sources.list.d/salt.list"
)

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Run executes shell commands one by one with apt pinned to
// non-interactive mode, stopping at the first failure.
func Run(commands []string) (err error) {
	for _, command := range commands {
		_, err = shell.RunEnv(aptEnv, "sh", "-c", command)
		if err != nil {
			return
		}
	}
	return
}

// Deps installs what every apt-based install path needs before the
// package repository can be configured.
func Deps(e *dispatch.Env) (err error) {
	var commands []string
	cmdf := func(f string, s ...interface{}) {
		commands = append(commands, fmt.Sprintf(f, s...))
	}

	cmdf("apt-get update")
	cmdf("apt-get install -y curl gnupg ca-certificates")

	return Run(commands)
}

// GitDeps installs the toolchain and python libraries a source build
// needs, then fetches the requested ref so the install step starts
// from a warm clone.
func GitDeps(e *dispatch.Env) (err error) {
	python := e.Options.PythonVersion
	if python == "" {
		python = "python3"
	}

	var commands []string
	cmdf := func(f string, s ...interface{}) {
		commands = append(commands, fmt.Sprintf(f, s...))
	}

	cmdf("apt-get update")
	cmdf("apt-get install -y git gcc %s %s-dev %s-setuptools",
		python, python, python)
	cmdf("apt-get install -y %s-yaml %s-jinja2 %s-msgpack "+
		"%s-zmq %s-requests",
		python, python, python, python, python)

	err = Run(commands)
	if err != nil {
		return
	}

	_, err = gitsource.Checkout(e.Options.GitURL, e.Options.Version)
	return
}

func installStable(e *dispatch.Env) (err error) {
	codename, found := codenames[e.Context.Major]
	if !found {
		return fmt.Errorf("no codename for debian %s",
			e.Context.Major)
	}

	err = ConfigureRepo(e, codename)
	if err != nil {
		return
	}

	return InstallPackages(e)
}

// ConfigureRepo fetches the signing key, writes the sources.list
// entry for the requested channel and refreshes the package index.
func ConfigureRepo(e *dispatch.Env, codename string) (err error) {
	err = saltrepo.FetchKey(e, keyringPath)
	if err != nil {
		return
	}

	err = os.WriteFile(sourcesPath, []byte(RepoLine(e, codename)+"\n"),
		0644)
	if err != nil {
		return
	}

	return Run([]string{"apt-get update"})
}

// RepoLine renders the sources.list entry for the environment.
func RepoLine(e *dispatch.Env, codename string) string {
	return fmt.Sprintf("deb [signed-by=%s arch=%s] %s %s main",
		keyringPath, aptArch(e.Context.Arch), saltrepo.Base(e),
		codename)
}

// InstallPackages installs the salt packages for the requested roles
// from whatever repository is configured by now.
func InstallPackages(e *dispatch.Env) (err error) {
	pkgs := []string{"salt-common"}
	for _, role := range e.Options.Roles {
		pkgs = append(pkgs, "salt-"+role.String())
	}

	if e.Options.Version != "" {
		for i, pkg := range pkgs {
			pkgs[i] = pkg + "=" + e.Options.Version + "*"
		}
	}

	pkgs = append(pkgs, e.Options.ExtraPackages...)

	return Run([]string{
		"apt-get install -y " + strings.Join(pkgs, " "),
	})
}

func aptArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "armv7l":
		return "armhf"
	}
	return arch
}
