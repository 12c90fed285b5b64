package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/pipeline"
)

func TestRecordAndRuns(t *testing.T) {
	assert := assert.New(t)

	j, err := Open(filepath.Join(t.TempDir(), "history.db"))
	assert.NoError(err)
	defer j.Close()

	e := &dispatch.Env{
		Context: dispatch.Context{
			Distro: "centos",
			Major:  "7",
			Minor:  "0",
			Type:   dispatch.Stable,
		},
		Options: dispatch.Options{
			Roles: []dispatch.Role{dispatch.Minion, dispatch.Master},
		},
	}

	results := []pipeline.Result{
		{Kind: dispatch.InstallDeps, Handler: "centos_deps", Invoked: true, Ok: true},
		{Kind: dispatch.Install, Handler: "centos_install", Invoked: true, Ok: false},
	}

	assert.NoError(j.Record(e, results, false))

	runs, err := j.Runs(10)
	assert.NoError(err)
	assert.Len(runs, 1)

	run := runs[0]
	assert.Equal("centos", run.Distro)
	assert.Equal("7.0", run.Release)
	assert.Equal("stable", run.Type)
	assert.Equal("minion,master", run.Roles)
	assert.False(run.Ok)

	assert.Len(run.Steps, 2)
	assert.Equal("deps", run.Steps[0].Kind)
	assert.True(run.Steps[0].Ok)
	assert.Equal("install", run.Steps[1].Kind)
	assert.False(run.Steps[1].Ok)
}

func TestRunsOrder(t *testing.T) {
	assert := assert.New(t)

	j, err := Open(filepath.Join(t.TempDir(), "history.db"))
	assert.NoError(err)
	defer j.Close()

	e := &dispatch.Env{
		Context: dispatch.Context{Distro: "debian", Major: "12"},
	}

	assert.NoError(j.Record(e, nil, false))
	assert.NoError(j.Record(e, nil, true))

	runs, err := j.Runs(10)
	assert.NoError(err)
	assert.Len(runs, 2)

	// newest first
	assert.True(runs[0].Ok)
	assert.False(runs[1].Ok)
}

func TestVersionCheck(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path)
	assert.NoError(err)

	_, err = j.db.Exec("UPDATE metadata SET value = 100500 WHERE key = $1",
		versionField)
	assert.NoError(err)
	assert.NoError(j.Close())

	_, err = Open(path)
	assert.Error(err)
}
