// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/pipeline"
)

// Change on ANY database update
const currentDatabaseVersion = 1

const versionField = "db_version"

// Journal keeps the history of installation runs. It is strictly a
// record for the operator: nothing in the pipeline reads it back.
type Journal struct {
	db *sql.DB
}

// Run is one recorded invocation.
type Run struct {
	ID        int
	Timestamp time.Time

	Distro  string
	Release string
	Type    string
	Roles   string

	Ok bool

	Steps []Step
}

// Step is one pipeline operation within a run.
type Step struct {
	Kind    string
	Handler string
	Invoked bool
	Ok      bool
}

func Open(path string) (j *Journal, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return
	}

	db.SetMaxOpenConns(1)

	j = &Journal{db: db}

	err = j.createRunsTable()
	if err != nil {
		return
	}

	err = j.createStepsTable()
	if err != nil {
		return
	}

	err = j.createMetadataTable()
	if err != nil {
		return
	}

	err = j.checkVersion()
	return
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createRunsTable() (err error) {
	_, err = j.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id		INTEGER PRIMARY KEY,
		time		DATETIME DEFAULT CURRENT_TIMESTAMP,

		distro		TEXT,
		distro_release	TEXT,
		install_type	TEXT,
		roles		TEXT,

		ok		BOOLEAN
	)`)
	return
}

func (j *Journal) createStepsTable() (err error) {
	_, err = j.db.Exec(`
	CREATE TABLE IF NOT EXISTS steps (
		id		INTEGER PRIMARY KEY,
		run_id		INTEGER NOT NULL,

		kind		TEXT,
		handler		TEXT,
		invoked		BOOLEAN,
		ok		BOOLEAN,

		FOREIGN KEY(run_id) REFERENCES runs(id)
	)`)
	return
}

func (j *Journal) createMetadataTable() (err error) {
	_, err = j.db.Exec(`
	CREATE TABLE IF NOT EXISTS metadata (
		id	INTEGER PRIMARY KEY,
		key	TEXT UNIQUE,
		value	TEXT
	)`)
	return
}

func (j *Journal) checkVersion() (err error) {
	var version int
	err = j.db.QueryRow("SELECT value FROM metadata WHERE key = $1",
		versionField).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = j.db.Exec(
			"INSERT INTO metadata (key, value) VALUES ($1, $2)",
			versionField, currentDatabaseVersion)
		return
	}
	if err != nil {
		return
	}

	if version != currentDatabaseVersion {
		err = fmt.Errorf("journal version %d is not supported "+
			"(expected %d)", version, currentDatabaseVersion)
	}
	return
}

// Record one finished (or failed) run with its per-step results.
func (j *Journal) Record(e *dispatch.Env, results []pipeline.Result,
	ok bool) (err error) {

	release := e.Context.Major
	if e.Context.Minor != "" {
		release += "." + e.Context.Minor
	}

	var roles []string
	for _, r := range e.Options.Roles {
		roles = append(roles, r.String())
	}

	res, err := j.db.Exec(`
	INSERT INTO runs (distro, distro_release, install_type, roles, ok)
	VALUES ($1, $2, $3, $4, $5)`,
		e.Context.Distro, release, e.Context.Type.String(),
		strings.Join(roles, ","), ok)
	if err != nil {
		return
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return
	}

	for _, r := range results {
		_, err = j.db.Exec(`
		INSERT INTO steps (run_id, kind, handler, invoked, ok)
		VALUES ($1, $2, $3, $4, $5)`,
			runID, r.Kind.String(), r.Handler, r.Invoked, r.Ok)
		if err != nil {
			return
		}
	}
	return
}

// Runs returns up to num most recent runs, newest first.
func (j *Journal) Runs(num int) (runs []Run, err error) {
	rows, err := j.db.Query(`
	SELECT id, time, distro, distro_release, install_type, roles, ok
	FROM runs ORDER BY id DESC LIMIT $1`, num)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var r Run
		err = rows.Scan(&r.ID, &r.Timestamp, &r.Distro, &r.Release,
			&r.Type, &r.Roles, &r.Ok)
		if err != nil {
			return
		}
		runs = append(runs, r)
	}

	for i := range runs {
		runs[i].Steps, err = j.steps(runs[i].ID)
		if err != nil {
			return
		}
	}
	return
}

func (j *Journal) steps(runID int) (steps []Step, err error) {
	rows, err := j.db.Query(`
	SELECT kind, handler, invoked, ok FROM steps
	WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var s Step
		err = rows.Scan(&s.Kind, &s.Handler, &s.Invoked, &s.Ok)
		if err != nil {
			return
		}
		steps = append(steps, s)
	}
	return
}
