// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package gitsource

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/fs"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

// Checkout clones (or reuses an earlier clone of) the salt source
// repository and checks out ref, which may be a branch, a tag, or a
// commit hash. Returns the worktree path for the install handlers.
func Checkout(repo, ref string) (workPath string, err error) {
	base := dotfiles.Dir("git")
	workPath = filepath.Join(base, sha1sum(repo))

	flog := log.With().Str("repo", repo).Str("ref", ref).Logger()

	var r *git.Repository
	if fs.PathExists(workPath) {
		r, err = git.PlainOpen(workPath)
		if err != nil {
			return
		}

		err = r.Fetch(&git.FetchOptions{Tags: git.AllTags})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			// stale clone is still usable for already-fetched refs
			flog.Warn().Err(err).Msg("fetch")
		}
	} else {
		flog.Info().Msg("clone")
		r, err = git.PlainClone(workPath, false, &git.CloneOptions{URL: repo})
		if err != nil {
			return
		}
	}

	w, err := r.Worktree()
	if err != nil {
		return
	}

	if ref == "" {
		return
	}

	for _, opts := range []git.CheckoutOptions{
		{Branch: plumbing.NewBranchReferenceName(ref), Force: true},
		{Branch: plumbing.NewRemoteReferenceName("origin", ref), Force: true},
		{Branch: plumbing.NewTagReferenceName(ref), Force: true},
		{Hash: plumbing.NewHash(ref), Force: true},
	} {
		err = w.Checkout(&opts)
		if err == nil {
			flog.Info().Msg("checked out")
			return
		}
	}

	return
}

// CheckoutOnly is the fixed dependency handler for git installs in
// no-deps mode: fetch the source, touch nothing else on the system.
func CheckoutOnly(e *dispatch.Env) (err error) {
	_, err = Checkout(e.Options.GitURL, e.Options.Version)
	return
}

// unitDir is where InstallUnits drops systemd unit files. A variable
// so tests can point it at a scratch directory.
var unitDir = "/usr/lib/systemd/system"

// InstallFromSource checks out the requested ref and installs salt
// from the worktree. Families register this as their git install
// handler; distro-specific build dependencies belong in deps.
func InstallFromSource(e *dispatch.Env) (err error) {
	workPath, err := Checkout(e.Options.GitURL, e.Options.Version)
	if err != nil {
		return
	}

	python := e.Options.PythonVersion
	if python == "" {
		python = "python3"
	}

	_, err = shell.RunIn(workPath, python, "setup.py", "install", "--force")
	return
}

// InstallUnits copies the unit files shipped with the salt source
// tree for the requested roles and enables them. Package installs get
// units from the package, source installs get them from here.
func InstallUnits(e *dispatch.Env) (err error) {
	workPath, err := Checkout(e.Options.GitURL, e.Options.Version)
	if err != nil {
		return
	}

	for _, role := range e.Options.Roles {
		name := role.Daemon()
		if name == "" {
			continue
		}

		unit := name + ".service"
		err = fs.CopyFile(
			filepath.Join(workPath, "pkg", unit),
			filepath.Join(unitDir, unit),
		)
		if err != nil {
			return
		}
	}

	if service.Detect() == service.Systemd {
		_, err = shell.Run("systemctl", "daemon-reload")
		if err != nil {
			return
		}
	}

	for _, role := range e.Options.Roles {
		if name := role.Daemon(); name != "" {
			err = service.Enable(name)
			if err != nil {
				return
			}
		}
	}
	return
}

func sha1sum(data string) string {
	h := sha1.Sum([]byte(data))
	return hex.EncodeToString(h[:])
}
