// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package pipeline

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/diag"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/gitsource"
)

// State of the installation run.
type State int

const (
	Init State = iota
	DepsInstalled
	Configured
	MasterPreseeded
	SaltInstalled
	PostInstalled
	ServicesChecked
	DaemonsRestarted
	DaemonsVerified
	Done
	Failed
)

var stateStrings = [...]string{
	"init",
	"deps_installed",
	"configured",
	"master_preseeded",
	"salt_installed",
	"post_installed",
	"services_checked",
	"daemons_restarted",
	"daemons_verified",
	"done",
	"failed",
}

func (s State) String() string {
	return stateStrings[s]
}

// Result of one pipeline operation, for the journal and diagnostics.
// No retry state: every operation is one-shot.
type Result struct {
	Kind    dispatch.Kind
	Handler string
	Invoked bool
	Ok      bool
}

type step struct {
	kind dispatch.Kind
	next State

	// mandatory steps fail the run when no handler resolves;
	// optional steps treat a resolution miss as a silent no-op
	mandatory bool

	// skip gates the step on run options; a skipped step advances
	// the state without resolving anything
	skip func(e *dispatch.Env) bool

	// override bypasses candidate-list generation entirely
	override func(e *dispatch.Env) (string, dispatch.Handler)
}

// Pipeline executes the resolved handlers in fixed order,
// fail-fast: the first failure aborts the whole run, recovery is the
// operator re-invoking the tool.
type Pipeline struct {
	env     *dispatch.Env
	state   State
	results []Result
}

func New(env *dispatch.Env) *Pipeline {
	return &Pipeline{env: env, state: Init}
}

func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) Results() []Result {
	return p.results
}

func steps() []step {
	return []step{
		{
			kind:      dispatch.InstallDeps,
			next:      DepsInstalled,
			mandatory: true,
			skip: func(e *dispatch.Env) bool {
				if e.Options.ConfigOnly {
					return true
				}
				// no-deps mode still needs the source
				// checkout for git installs, handled by
				// the override below
				return e.Options.NoDeps &&
					e.Context.Type != dispatch.Git
			},
			override: func(e *dispatch.Env) (string, dispatch.Handler) {
				if e.Options.NoDeps {
					return "git_checkout_only", gitsource.CheckoutOnly
				}
				return "", nil
			},
		},
		{
			kind: dispatch.ConfigureSalt,
			next: Configured,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigSource == ""
			},
		},
		{
			kind: dispatch.PreseedMaster,
			next: MasterPreseeded,
			skip: func(e *dispatch.Env) bool {
				return e.Options.PreseedDir == ""
			},
		},
		{
			kind:      dispatch.Install,
			next:      SaltInstalled,
			mandatory: true,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigOnly
			},
		},
		{
			kind: dispatch.PostInstall,
			next: PostInstalled,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigOnly
			},
		},
		{
			kind: dispatch.CheckServices,
			next: ServicesChecked,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigOnly || e.Options.NoChecks
			},
		},
		{
			kind: dispatch.RestartDaemons,
			next: DaemonsRestarted,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigOnly || e.Options.NoStart
			},
		},
		{
			kind: dispatch.DaemonsRunning,
			next: DaemonsVerified,
			skip: func(e *dispatch.Env) bool {
				return e.Options.ConfigOnly || e.Options.NoStart
			},
		},
	}
}

// Run the pipeline to completion or first failure.
func (p *Pipeline) Run() (err error) {
	for _, s := range steps() {
		err = p.run(s)
		if err != nil {
			p.state = Failed
			log.Error().Err(err).Msgf("state %s", p.state)
			return
		}
	}

	p.state = Done
	log.Info().Msgf("state %s", p.state)
	return
}

func (p *Pipeline) run(s step) (err error) {
	if s.skip != nil && s.skip(p.env) {
		log.Debug().Msgf("%s: skipped", s.kind)
		p.state = s.next
		return
	}

	var name string
	var handler dispatch.Handler
	var found bool

	if s.override != nil {
		name, handler = s.override(p.env)
		found = handler != nil
	}
	if !found {
		name, handler, found = dispatch.Resolve(s.kind, p.env.Context)
	}

	if !found {
		if s.mandatory {
			p.results = append(p.results, Result{Kind: s.kind})
			return fmt.Errorf("%s is not implemented for %s",
				s.kind, p.env.Context)
		}

		log.Debug().Msgf("%s: no handler for %s, skipped",
			s.kind, p.env.Context)
		p.results = append(p.results, Result{Kind: s.kind})
		p.state = s.next
		return
	}

	flog := log.With().Str("handler", name).Logger()
	flog.Info().Msgf("%s", s.kind)

	err = handler(p.env)

	p.results = append(p.results, Result{
		Kind:    s.kind,
		Handler: name,
		Invoked: true,
		Ok:      err == nil,
	})

	if err != nil {
		if s.kind == dispatch.DaemonsRunning {
			diag.Collect(p.env)
		}
		return fmt.Errorf("%s (%s): %v", s.kind, name, err)
	}

	p.state = s.next
	flog.Info().Msgf("state %s", s.next)
	return
}
