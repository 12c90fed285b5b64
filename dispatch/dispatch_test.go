package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nop(e *Env) error { return nil }

func testContext(distro, major, minor string, t InstallType) Context {
	return Context{Distro: distro, Major: major, Minor: minor, Type: t}
}

func TestCandidatesOrder(t *testing.T) {
	assert := assert.New(t)

	c := testContext("ubuntu", "16", "04", Stable)

	names := Candidates(InstallDeps, c)
	assert.Equal([]string{
		"ubuntu_16_stable_deps",
		"ubuntu_16_04_stable_deps",
		"ubuntu_16_deps",
		"ubuntu_16_04_deps",
		"ubuntu_stable_deps",
		"ubuntu_deps",
	}, names)
}

func TestCandidatesDedup(t *testing.T) {
	assert := assert.New(t)

	// No version at all: the six variants collapse to two.
	c := testContext("arch", "", "", Stable)

	names := Candidates(InstallDeps, c)
	assert.Equal([]string{"arch_stable_deps", "arch_deps"}, names)

	// Major only: minor-qualified variants collapse into their
	// major-qualified counterparts.
	c = testContext("debian", "9", "", Git)

	names = Candidates(InstallDeps, c)
	assert.Equal([]string{
		"debian_9_git_deps",
		"debian_9_deps",
		"debian_git_deps",
		"debian_deps",
	}, names)
}

func TestCandidatesNeverEmpty(t *testing.T) {
	assert := assert.New(t)

	for _, kind := range Kinds {
		for _, itype := range InstallTypes {
			c := testContext("fantasydistro", "1", "2", itype)
			names := Candidates(kind, c)

			assert.NotEmpty(names)

			seen := map[string]bool{}
			for _, name := range names {
				assert.False(seen[name], name)
				seen[name] = true
			}
		}
	}
}

func TestCandidatesFallback(t *testing.T) {
	assert := assert.New(t)

	c := testContext("centos", "7", "0", Stable)

	names := Candidates(ConfigureSalt, c)
	assert.Equal("config_salt", names[len(names)-1])

	names = Candidates(PreseedMaster, c)
	assert.Equal("preseed_master", names[len(names)-1])

	names = Candidates(CheckServices, c)
	assert.Equal("check_services", names[len(names)-1])

	names = Candidates(DaemonsRunning, c)
	assert.Equal("daemons_running", names[len(names)-1])

	// Mandatory-per-distro kinds never fall back past the distro.
	for _, kind := range []Kind{InstallDeps, Install, PostInstall, RestartDaemons} {
		names = Candidates(kind, c)
		assert.Equal("centos_"+kind.String(), names[len(names)-1])
	}
}

func TestResolveMostSpecificWins(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	Register(Binding{
		Distro: "ubuntu", Major: "16", Type: Stable,
		Kind: InstallDeps, Handler: nop,
	})
	Register(Binding{
		Distro: "ubuntu",
		Kind:   InstallDeps, Handler: nop,
	})

	name, _, found := Resolve(InstallDeps, testContext("ubuntu", "16", "04", Stable))
	assert.True(found)
	assert.Equal("ubuntu_16_stable_deps", name)

	name, _, found = Resolve(InstallDeps, testContext("ubuntu", "18", "04", Stable))
	assert.True(found)
	assert.Equal("ubuntu_deps", name)
}

func TestResolveUnavailable(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	_, _, found := Resolve(InstallDeps, testContext("ubuntu", "16", "04", Stable))
	assert.False(found)
}

func TestResolveGitTypeVariant(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	// Only the type-specific variant exists, no major/minor ones.
	Register(Binding{
		Distro: "debian", Type: Git,
		Kind: Install, Handler: nop,
	})

	name, _, found := Resolve(Install, testContext("debian", "9", "0", Git))
	assert.True(found)
	assert.Equal("debian_git_install", name)
}

func TestResolveIdempotent(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	Register(Binding{Distro: "opensuse", Kind: Install, Handler: nop})
	Register(Binding{
		Distro: "opensuse", Major: "15",
		Kind: Install, Handler: nop,
	})

	c := testContext("opensuse", "15", "4", Stable)

	first, _, _ := Resolve(Install, c)
	second, _, _ := Resolve(Install, c)
	assert.Equal(first, second)
	assert.Equal("opensuse_15_install", first)
}

func TestRegisterValidation(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	assert.Panics(func() {
		Register(Binding{Distro: "ubuntu", Kind: InstallDeps})
	})

	assert.Panics(func() {
		// InstallDeps has no universal fallback.
		Register(Binding{Kind: InstallDeps, Handler: nop})
	})

	assert.Panics(func() {
		Register(Binding{Type: Stable, Kind: ConfigureSalt, Handler: nop})
	})

	Register(Binding{Distro: "ubuntu", Kind: InstallDeps, Handler: nop})
	assert.Panics(func() {
		Register(Binding{Distro: "ubuntu", Kind: InstallDeps, Handler: nop})
	})
}

func TestFallbackRegistration(t *testing.T) {
	defer reset()
	assert := assert.New(t)

	Register(Binding{Kind: ConfigureSalt, Handler: nop})

	name, _, found := Resolve(ConfigureSalt, testContext("fantasydistro", "", "", Stable))
	assert.True(found)
	assert.Equal("config_salt", name)
}
