// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/config"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/journal"
	"code.dumpstack.io/tools/salt-bootstrap/pipeline"
	"code.dumpstack.io/tools/salt-bootstrap/saltrepo"
	"code.dumpstack.io/tools/salt-bootstrap/sysenv"
)

// InstallOptions are shared by all install channels.
type InstallOptions struct {
	Minion bool `help:"install the minion role" default:"true" negatable:""`
	Master bool `help:"install the master role"`
	Syndic bool `help:"install the syndic role"`
	Cloud  bool `help:"install salt-cloud support"`

	SaltConfig string `help:"directory, archive or URL with salt configuration"`
	Preseed    string `help:"directory with pre-generated minion keys for the master"`

	Repo   string `help:"package repository root override"`
	GitURL string `help:"salt source repository override"`

	Python string `help:"python interpreter for source builds"`
	Proxy  string `help:"http proxy for downloads"`

	ExtraPackages []string `help:"additional packages to install alongside salt"`

	Insecure   bool `help:"allow plain http downloads"`
	Force      bool `help:"overwrite existing configuration, ignore EOL"`
	ConfigOnly bool `help:"apply configuration and keys, install nothing"`
	NoDeps     bool `help:"skip dependency installation"`
	NoStart    bool `help:"do not (re)start the daemons"`
	NoChecks   bool `help:"skip service checks"`

	Settle time.Duration `help:"upper bound for daemons to come up after restart"`
}

func (opts InstallOptions) roles() (roles []dispatch.Role) {
	if opts.Minion {
		roles = append(roles, dispatch.Minion)
	}
	if opts.Master {
		roles = append(roles, dispatch.Master)
	}
	if opts.Syndic {
		roles = append(roles, dispatch.Syndic)
	}
	if opts.Cloud {
		roles = append(roles, dispatch.Cloud)
	}
	return
}

type StableCmd struct {
	InstallOptions

	Version string `arg:"" optional:"" help:"pin a package version, or 'latest'"`
}

func (cmd *StableCmd) Run(g *Globals) (err error) {
	return install(g, dispatch.Stable, cmd.Version, cmd.InstallOptions)
}

type TestingCmd struct {
	InstallOptions
}

func (cmd *TestingCmd) Run(g *Globals) (err error) {
	return install(g, dispatch.Testing, "", cmd.InstallOptions)
}

type DailyCmd struct {
	InstallOptions
}

func (cmd *DailyCmd) Run(g *Globals) (err error) {
	return install(g, dispatch.Daily, "", cmd.InstallOptions)
}

type GitCmd struct {
	InstallOptions

	Ref string `arg:"" optional:"" default:"master" help:"branch, tag or commit to build"`
}

func (cmd *GitCmd) Run(g *Globals) (err error) {
	return install(g, dispatch.Git, cmd.Ref, cmd.InstallOptions)
}

func install(g *Globals, t dispatch.InstallType, version string,
	opts InstallOptions) (err error) {

	if os.Geteuid() != 0 {
		return errors.New("salt installation requires root")
	}

	conf, err := config.Read(g.Config)
	if err != nil {
		return
	}

	c, err := sysenv.Detect()
	if err != nil {
		return
	}
	c.Type = t

	log.Info().Msgf("detected %s", c)

	err = sysenv.CheckEOL(c)
	if err != nil {
		if !opts.Force {
			return
		}
		log.Warn().Err(err).Msg("proceeding anyway (force)")
	}

	roles := opts.roles()
	if len(roles) == 0 {
		return errors.New("nothing to install: all roles disabled")
	}

	e := &dispatch.Env{
		Context: c,
		Options: dispatch.Options{
			Roles: roles,

			Version: version,

			ConfigSource: opts.SaltConfig,
			PreseedDir:   opts.Preseed,

			RepoURL:       override(opts.Repo, conf.RepoURL),
			GitURL:        override(opts.GitURL, conf.GitURL),
			EtcDir:        conf.EtcDir,
			PkiDir:        conf.PkiDir,
			PythonVersion: override(opts.Python, conf.PythonVersion),
			Proxy:         override(opts.Proxy, conf.Proxy),

			ExtraPackages: opts.ExtraPackages,

			Insecure:   opts.Insecure,
			Force:      opts.Force,
			ConfigOnly: opts.ConfigOnly,
			NoDeps:     opts.NoDeps,
			NoStart:    opts.NoStart,
			NoChecks:   opts.NoChecks,

			Settle: opts.Settle,
		},
	}

	if e.Options.Settle == 0 {
		e.Options.Settle = conf.Settle.Duration
	}

	if e.Options.Proxy != "" {
		for _, name := range []string{"http_proxy", "https_proxy",
			"HTTP_PROXY", "HTTPS_PROXY"} {

			os.Setenv(name, e.Options.Proxy)
		}
	}

	if t == dispatch.Stable && version == "latest" {
		e.Options.Version = ""
		e.Options.Version, err = saltrepo.LatestVersion(
			saltrepo.MinorIndex(e))
		if err != nil {
			return
		}
		log.Info().Msgf("latest version is %s", e.Options.Version)
	}

	p := pipeline.New(e)
	rerr := p.Run()

	j, err := journal.Open(conf.Journal)
	if err != nil {
		log.Warn().Err(err).Msg("run is not recorded")
		err = nil
	} else {
		defer j.Close()

		err = j.Record(e, p.Results(), rerr == nil)
		if err != nil {
			log.Warn().Err(err).Msg("run is not recorded")
			err = nil
		}
	}

	return rerr
}

func override(flag, conf string) string {
	if flag != "" {
		return flag
	}
	return conf
}
