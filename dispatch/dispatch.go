package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Context is the runtime environment handler resolution happens
// against. It is populated once per run and never mutated afterwards.
type Context struct {
	Name string // distro name as reported by the host
	// Distro is the normalized name: lowercase ASCII, underscore
	// as the only separator, aliases mapped to the base distro.
	Distro string
	// Major and Minor are numeric strings. Empty means the release
	// carries no meaningful version (rolling releases).
	Major string
	Minor string
	Type  InstallType
	Arch  string
}

func (c Context) String() string {
	s := c.Distro
	if c.Major != "" {
		s += " " + c.Major
		if c.Minor != "" {
			s += "." + c.Minor
		}
	}
	return s + " (" + c.Type.String() + ")"
}

// Options is the immutable per-run configuration. It replaces the
// ambient flag soup of classic bootstrap scripts: every handler gets
// the same value, explicitly.
type Options struct {
	Roles []Role

	// Version is the requested package version for stable installs
	// or the git ref for source installs. Empty means latest.
	Version string

	ConfigSource string // directory, archive or URL with salt configs
	PreseedDir   string // pre-generated minion keys for the master

	RepoURL       string // package repository override
	GitURL        string // salt source repository
	EtcDir        string // salt configuration root, /etc/salt by default
	PkiDir        string // salt pki root, /etc/salt/pki by default
	PythonVersion string
	Proxy         string

	ExtraPackages []string

	Insecure   bool // allow plain http downloads
	Force      bool // overwrite existing configs without .bak copies
	ConfigOnly bool // apply configuration, do not install anything
	NoDeps     bool // skip dependency installation
	NoStart    bool // do not (re)start daemons
	NoChecks   bool // skip service checks

	// Settle bounds the post-restart polling for daemons to come up.
	Settle time.Duration
}

func (o Options) HasRole(r Role) bool {
	for _, role := range o.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Env is everything a handler is allowed to see.
type Env struct {
	Context Context
	Options Options
}

// Handler performs one pipeline operation on the host. There are no
// arguments beyond the environment and no results beyond an error.
type Handler func(e *Env) error

// Binding ties a handler to the specificity tuple it matches. The
// fully qualified handler name is synthesized from the tuple, so a
// registration cannot introduce a name that resolution would never
// generate.
type Binding struct {
	Distro string
	Major  string
	Minor  string
	Type   InstallType
	Kind   Kind

	Handler Handler
}

// Name of the handler, synthesized from the specificity tuple.
// Empty components collapse, e.g. an empty distro with no version
// and no type yields the bare kind name (the universal fallback).
func (b Binding) Name() string {
	return handlerName(b.Distro, b.Major, b.Minor, b.Type, b.Kind)
}

func handlerName(distro, major, minor string, t InstallType, k Kind) string {
	var parts []string
	if distro != "" {
		parts = append(parts, distro)
	}
	if major != "" {
		parts = append(parts, major)
	}
	if minor != "" {
		parts = append(parts, minor)
	}
	if t != TypeNone {
		parts = append(parts, t.String())
	}
	parts = append(parts, k.String())
	return strings.Join(parts, "_")
}

var (
	mu       sync.Mutex
	handlers = map[string]Binding{}
)

// Register adds a handler binding. Registration happens at process
// start from the distro family packages; a duplicate or an invalid
// binding is a programming error, hence panic.
func Register(b Binding) {
	mu.Lock()
	defer mu.Unlock()

	if b.Handler == nil {
		panic("dispatch: nil handler for " + b.Name())
	}

	if b.Distro == "" {
		if b.Kind.Fallback() == "" {
			panic(fmt.Sprintf(
				"dispatch: %s has no universal fallback",
				b.Kind))
		}
		if b.Major != "" || b.Minor != "" || b.Type != TypeNone {
			panic("dispatch: fallback binding must not be versioned")
		}
	}

	name := b.Name()
	if _, exist := handlers[name]; exist {
		panic("dispatch: duplicate handler " + name)
	}

	handlers[name] = b
}

// Lookup returns the handler registered under the exact name.
// Absence is an expected outcome, not an error: most specificity
// variants for most distros are intentionally missing.
func Lookup(name string) (h Handler, found bool) {
	mu.Lock()
	defer mu.Unlock()

	b, found := handlers[name]
	if found {
		h = b.Handler
	}
	return
}

// Distros returns the normalized names of all distros with at least
// one registered handler.
func Distros() (names []string) {
	mu.Lock()
	defer mu.Unlock()

	seen := map[string]bool{}
	for _, b := range handlers {
		if b.Distro == "" || seen[b.Distro] {
			continue
		}
		seen[b.Distro] = true
		names = append(names, b.Distro)
	}

	sort.Strings(names)
	return
}

// Bindings returns all registered bindings for the distro.
func Bindings(distro string) (bs []Binding) {
	mu.Lock()
	defer mu.Unlock()

	for _, b := range handlers {
		if b.Distro == distro {
			bs = append(bs, b)
		}
	}

	sort.Slice(bs, func(i, j int) bool {
		return bs[i].Name() < bs[j].Name()
	})
	return
}

// Candidates lists the handler names that may serve the operation,
// most specific first. The order encodes specificity priority and is
// part of the contract:
//
//	{distro}_{major}_{type}_{kind}
//	{distro}_{major}_{minor}_{type}_{kind}
//	{distro}_{major}_{kind}
//	{distro}_{major}_{minor}_{kind}
//	{distro}_{type}_{kind}
//	{distro}_{kind}
//
// plus the universal fallback name for the kinds that have one.
// Variants that collapse to the same name when major or minor are
// absent are deduplicated, first occurrence wins.
func Candidates(k Kind, c Context) (names []string) {
	variants := []string{
		handlerName(c.Distro, c.Major, "", c.Type, k),
		handlerName(c.Distro, c.Major, c.Minor, c.Type, k),
		handlerName(c.Distro, c.Major, "", TypeNone, k),
		handlerName(c.Distro, c.Major, c.Minor, TypeNone, k),
		handlerName(c.Distro, "", "", c.Type, k),
		handlerName(c.Distro, "", "", TypeNone, k),
	}

	if fallback := k.Fallback(); fallback != "" {
		variants = append(variants, fallback)
	}

	seen := map[string]bool{}
	for _, name := range variants {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return
}

// Resolve picks the most specific registered handler for the
// operation. Pure: same context and kind always resolve to the same
// handler. Not finding one is a normal outcome, reported via found.
func Resolve(k Kind, c Context) (name string, h Handler, found bool) {
	for _, candidate := range Candidates(k, c) {
		h, found = Lookup(candidate)
		if found {
			name = candidate
			return
		}
	}
	return
}

// reset drops all registrations. Tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string]Binding{}
}
