package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"

	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

type recorder struct {
	invoked []string
}

func (r *recorder) handler(name string) dispatch.Handler {
	return func(e *dispatch.Env) error {
		r.invoked = append(r.invoked, name)
		return nil
	}
}

func (r *recorder) failing(name string) dispatch.Handler {
	return func(e *dispatch.Env) error {
		r.invoked = append(r.invoked, name)
		return errors.New("boom")
	}
}

func env(distro, major, minor string, t dispatch.InstallType,
	roles ...dispatch.Role) *dispatch.Env {

	return &dispatch.Env{
		Context: dispatch.Context{
			Distro: distro,
			Major:  major,
			Minor:  minor,
			Type:   t,
			Arch:   "x86_64",
		},
		Options: dispatch.Options{
			Roles:  roles,
			Settle: time.Second,
		},
	}
}

// Stable minion install on a distro with the usual handler set:
// deps, install, check, restart and verify run; configuration,
// preseeding and post-install are skipped.
func TestRunStableMinion(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	for kind, name := range map[dispatch.Kind]string{
		dispatch.InstallDeps:    "deps",
		dispatch.Install:        "install",
		dispatch.CheckServices:  "check",
		dispatch.RestartDaemons: "restart",
		dispatch.DaemonsRunning: "verify",
	} {
		dispatch.Register(dispatch.Binding{
			Distro:  "centos",
			Kind:    kind,
			Handler: rec.handler(name),
		})
	}

	p := New(env("centos", "7", "0", dispatch.Stable, dispatch.Minion))
	err := p.Run()

	assert.NoError(err)
	assert.Equal(Done, p.State())
	assert.Equal([]string{"deps", "install", "check", "restart", "verify"},
		rec.invoked)
}

// A distro nobody implemented anything for fails during resolution
// of the first mandatory operation, before any handler runs.
func TestRunUnknownDistro(t *testing.T) {
	assert := assert.New(t)

	p := New(env("fantasydistro", "", "", dispatch.Stable, dispatch.Minion))
	err := p.Run()

	assert.Error(err)
	assert.Contains(err.Error(), "not implemented")
	assert.Equal(Failed, p.State())
}

// First failure aborts the run; later handlers never execute.
func TestRunFailFast(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "failtest", Kind: dispatch.InstallDeps,
		Handler: rec.failing("deps"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "failtest", Kind: dispatch.Install,
		Handler: rec.handler("install"),
	})

	p := New(env("failtest", "1", "", dispatch.Stable, dispatch.Minion))
	err := p.Run()

	assert.Error(err)
	assert.Equal(Failed, p.State())
	assert.Equal([]string{"deps"}, rec.invoked)

	results := p.Results()
	assert.Len(results, 1)
	assert.True(results[0].Invoked)
	assert.False(results[0].Ok)
}

// Config-only mode touches nothing but configuration.
func TestRunConfigOnly(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "cfgtest", Kind: dispatch.InstallDeps,
		Handler: rec.handler("deps"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "cfgtest", Kind: dispatch.ConfigureSalt,
		Handler: rec.handler("config"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "cfgtest", Kind: dispatch.Install,
		Handler: rec.handler("install"),
	})

	e := env("cfgtest", "1", "", dispatch.Stable, dispatch.Minion)
	e.Options.ConfigOnly = true
	e.Options.ConfigSource = t.TempDir()

	p := New(e)
	assert.NoError(p.Run())
	assert.Equal(Done, p.State())
	assert.Equal([]string{"config"}, rec.invoked)
}

// Mandatory install resolution miss is fatal even when deps resolve.
func TestRunInstallMiss(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "depsonly", Kind: dispatch.InstallDeps,
		Handler: rec.handler("deps"),
	})

	p := New(env("depsonly", "1", "", dispatch.Stable, dispatch.Minion))
	err := p.Run()

	assert.Error(err)
	assert.Equal(Failed, p.State())
	assert.Equal([]string{"deps"}, rec.invoked)
}

// Preseed runs only when a key directory is supplied.
func TestRunPreseedGate(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "seedtest", Kind: dispatch.InstallDeps,
		Handler: rec.handler("deps"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "seedtest", Kind: dispatch.PreseedMaster,
		Handler: rec.handler("preseed"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "seedtest", Kind: dispatch.Install,
		Handler: rec.handler("install"),
	})

	e := env("seedtest", "1", "", dispatch.Stable, dispatch.Master)
	e.Options.NoStart = true
	e.Options.NoChecks = true

	p := New(e)
	assert.NoError(p.Run())
	assert.Equal([]string{"deps", "install"}, rec.invoked)

	rec.invoked = nil
	e.Options.PreseedDir = t.TempDir()

	p = New(e)
	assert.NoError(p.Run())
	assert.Equal([]string{"deps", "preseed", "install"}, rec.invoked)
}

// In no-deps mode a git install still checks out the source, but
// through the fixed handler, not through resolution.
func TestRunNoDepsGit(t *testing.T) {
	assert := assert.New(t)

	dotfiles.Directory = t.TempDir()

	src := t.TempDir()
	r, err := git.PlainInit(src, false)
	assert.NoError(err)
	err = os.WriteFile(filepath.Join(src, "setup.py"), []byte("# salt\n"), 0644)
	assert.NoError(err)
	w, err := r.Worktree()
	assert.NoError(err)
	_, err = w.Add("setup.py")
	assert.NoError(err)
	_, err = w.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name: "test", Email: "test@localhost", When: time.Now(),
		},
	})
	assert.NoError(err)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "gittest", Kind: dispatch.InstallDeps,
		Handler: rec.handler("deps"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "gittest", Type: dispatch.Git, Kind: dispatch.Install,
		Handler: rec.handler("install"),
	})

	e := env("gittest", "1", "", dispatch.Git, dispatch.Minion)
	e.Options.NoDeps = true
	e.Options.NoStart = true
	e.Options.NoChecks = true
	e.Options.GitURL = src
	e.Options.Version = "master"

	p := New(e)
	assert.NoError(p.Run())

	// the registered deps handler was bypassed
	assert.Equal([]string{"install"}, rec.invoked)

	results := p.Results()
	assert.Equal("git_checkout_only", results[0].Handler)
	assert.True(results[0].Invoked)
}

// In no-deps mode package installs skip dependencies entirely.
func TestRunNoDepsPackage(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}
	dispatch.Register(dispatch.Binding{
		Distro: "nodeps", Kind: dispatch.InstallDeps,
		Handler: rec.handler("deps"),
	})
	dispatch.Register(dispatch.Binding{
		Distro: "nodeps", Kind: dispatch.Install,
		Handler: rec.handler("install"),
	})

	e := env("nodeps", "1", "", dispatch.Stable, dispatch.Minion)
	e.Options.NoDeps = true
	e.Options.NoStart = true
	e.Options.NoChecks = true

	p := New(e)
	assert.NoError(p.Run())
	assert.Equal([]string{"install"}, rec.invoked)
}
