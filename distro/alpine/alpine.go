// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package alpine

import (
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	dispatch.Register(dispatch.Binding{Distro: "alpine",
		Kind: dispatch.InstallDeps, Handler: deps})
	dispatch.Register(dispatch.Binding{Distro: "alpine",
		Type: dispatch.Stable, Kind: dispatch.Install,
		Handler: installStable})
	dispatch.Register(dispatch.Binding{Distro: "alpine",
		Kind: dispatch.PostInstall, Handler: service.EnableAll})
	dispatch.Register(dispatch.Binding{Distro: "alpine",
		Kind: dispatch.RestartDaemons, Handler: service.RestartAll})
}

func deps(e *dispatch.Env) (err error) {
	_, err = shell.Run("apk", "update")
	if err != nil {
		return
	}
	_, err = shell.Run("apk", "add", "curl", "ca-certificates")
	return
}

// installStable uses the distribution packages: alpine ships recent
// salt in the community repository.
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

	_, err = shell.Run("apk", append([]string{"add"}, pkgs...)...)
	return
}
