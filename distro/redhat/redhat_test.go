package redhat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

func TestResolve(t *testing.T) {
	assert := assert.New(t)

	for _, distro := range []string{"centos", "amazon", "fedora"} {
		c := dispatch.Context{
			Distro: distro,
			Major:  "9",
			Arch:   "x86_64",
			Type:   dispatch.Stable,
		}

		name, _, found := dispatch.Resolve(dispatch.Install, c)
		assert.True(found)
		assert.Equal(distro+"_stable_install", name)

		c.Type = dispatch.Testing
		name, _, found = dispatch.Resolve(dispatch.Install, c)
		assert.True(found)
		assert.Equal(distro+"_testing_install", name)
	}

	// source builds stay centos-only
	c := dispatch.Context{Distro: "fedora", Type: dispatch.Git}
	_, _, found := dispatch.Resolve(dispatch.Install, c)
	assert.False(found)

	c.Distro = "centos"
	name, _, found := dispatch.Resolve(dispatch.Install, c)
	assert.True(found)
	assert.Equal("centos_git_install", name)

	name, _, found = dispatch.Resolve(dispatch.PostInstall, c)
	assert.True(found)
	assert.Equal("centos_git_post_install", name)
}

func TestRepoFile(t *testing.T) {
	assert := assert.New(t)

	e := &dispatch.Env{
		Context: dispatch.Context{
			Distro: "centos",
			Major:  "9",
			Arch:   "x86_64",
			Type:   dispatch.Testing,
		},
		Options: dispatch.Options{
			RepoURL: "https://repo.saltproject.io/salt/py3",
		},
	}

	repo := repoFile(e)
	assert.Contains(repo, "[salt]")
	assert.Contains(repo,
		"baseurl=https://repo.saltproject.io/salt/py3"+
			"/centos/9/x86_64/testing")
	assert.Contains(repo, "gpgcheck=1")
	assert.Contains(repo, "gpgkey=file://"+keyPath)
}
