// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package config

import (
	"os"
	"strings"
	"time"

	"github.com/naoina/toml"

	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"
)

// Bootstrap is the persistent tool configuration, read from
// ~/.salt-bootstrap/bootstrap.toml. Everything here can also be set
// per run from the command line; the file only provides defaults.
type Bootstrap struct {
	// RepoURL is the base URL of the package repository.
	RepoURL string

	// GitURL is the salt source repository for git installs.
	GitURL string

	// EtcDir is the salt configuration root.
	EtcDir string

	// PkiDir is the master key store for preseeding.
	PkiDir string

	// Journal is the path to the run history database.
	Journal string

	PythonVersion string

	Proxy string

	// Settle bounds the wait for daemons to come up after restart.
	Settle Duration
}

func Read(path string) (c Bootstrap, err error) {
	buf, err := os.ReadFile(path)
	if err == nil {
		err = toml.Unmarshal(buf, &c)
		if err != nil {
			return
		}
	} else {
		// It's ok if there's no configuration
		// then we'll just set default values
		err = nil
	}

	if c.RepoURL == "" {
		c.RepoURL = "https://repo.saltproject.io/salt/py3"
	}

	if c.GitURL == "" {
		c.GitURL = "https://github.com/saltstack/salt"
	}

	if c.EtcDir == "" {
		c.EtcDir = "/etc/salt"
	}

	if c.PkiDir == "" {
		c.PkiDir = "/etc/salt/pki"
	}

	if c.Journal == "" {
		c.Journal = dotfiles.File("history.db")
	}

	if c.PythonVersion == "" {
		c.PythonVersion = "python3"
	}

	if c.Settle.Duration == 0 {
		c.Settle.Duration = 30 * time.Second
	}

	return
}

// Duration type with toml unmarshalling support
type Duration struct {
	time.Duration
}

// UnmarshalTOML for Duration
func (d *Duration) UnmarshalTOML(data []byte) (err error) {
	duration := strings.Trim(string(data), `"`)
	d.Duration, err = time.ParseDuration(duration)
	return
}

// MarshalTOML for Duration
func (d Duration) MarshalTOML() (data []byte, err error) {
	data = []byte(`"` + d.Duration.String() + `"`)
	return
}
