// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package saltconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"
	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/fs"
	"code.dumpstack.io/tools/salt-bootstrap/saltrepo"
)

func init() {
	dispatch.Register(dispatch.Binding{
		Kind:    dispatch.ConfigureSalt,
		Handler: Apply,
	})
	dispatch.Register(dispatch.Binding{
		Kind:    dispatch.PreseedMaster,
		Handler: Preseed,
	})
}

// Apply is the universal config_salt handler: place the supplied
// salt configuration into the etc directory. The source may be a
// local directory, a tar archive (optionally gz/xz compressed), or a
// URL pointing at such an archive.
func Apply(e *dispatch.Env) (err error) {
	src := e.Options.ConfigSource
	if src == "" {
		return errors.New("no configuration source supplied")
	}

	stage, err := stageSource(e, src)
	if err != nil {
		return
	}

	return install(e, stage)
}

// stageSource turns whatever the operator passed into a local
// directory of configuration files.
func stageSource(e *dispatch.Env, src string) (stage string, err error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		var tmp string
		tmp, err = os.MkdirTemp(dotfiles.Dir("tmp"), "config_")
		if err != nil {
			return
		}

		src, err = saltrepo.Fetch(e, src, tmp)
		if err != nil {
			return
		}
	}

	fi, err := os.Stat(src)
	if err != nil {
		return
	}

	if fi.IsDir() {
		stage = src
		return
	}

	stage, err = os.MkdirTemp(dotfiles.Dir("tmp"), "config_")
	if err != nil {
		return
	}

	err = unpack(src, stage)
	return
}

// roleFor maps a configuration file onto the role that consumes it.
// Files that do not belong to a particular role are installed
// unconditionally.
func roleFor(rel string) (r dispatch.Role, gated bool) {
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	switch {
	case first == "master" || first == "master.d":
		return dispatch.Master, true
	case first == "minion" || first == "minion.d" || first == "grains":
		return dispatch.Minion, true
	case strings.HasPrefix(first, "cloud"):
		return dispatch.Cloud, true
	}
	return
}

func install(e *dispatch.Env, stage string) (err error) {
	etc := e.Options.EtcDir

	return filepath.Walk(stage, func(path string, fi os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}
		if fi.IsDir() {
			return nil
		}

		rel, rerr := filepath.Rel(stage, path)
		if rerr != nil {
			return rerr
		}

		if role, gated := roleFor(rel); gated && !e.Options.HasRole(role) {
			log.Debug().Msgf("skip %s: %s role not requested", rel, role)
			return nil
		}

		dst := filepath.Join(etc, rel)
		if merr := os.MkdirAll(filepath.Dir(dst), os.ModePerm); merr != nil {
			return merr
		}

		if fs.PathExists(dst) && !e.Options.Force {
			if berr := fs.Backup(dst); berr != nil {
				return berr
			}
		}

		log.Info().Msgf("config %s", dst)
		return fs.CopyFile(path, dst)
	})
}

// Preseed is the universal preseed_master handler: pre-generated
// minion keys land in the master key store as already accepted, so
// minions connect without manual key acceptance.
func Preseed(e *dispatch.Env) (err error) {
	src := e.Options.PreseedDir
	if src == "" {
		return errors.New("no preseed key directory supplied")
	}

	dst := filepath.Join(e.Options.PkiDir, "master", "minions")

	log.Info().Msgf("preseed keys %s -> %s", src, dst)

	err = cp.Copy(src, dst)
	if err != nil {
		return
	}

	// minion keys are secrets
	err = filepath.Walk(dst, func(path string, fi os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}
		if fi.IsDir() {
			return os.Chmod(path, 0700)
		}
		return os.Chmod(path, 0600)
	})
	return
}
