// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/fs"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

func init() {
	dispatch.Register(dispatch.Binding{
		Kind:    dispatch.CheckServices,
		Handler: Check,
	})
	dispatch.Register(dispatch.Binding{
		Kind:    dispatch.DaemonsRunning,
		Handler: Running,
	})
}

// Manager is the init system driving the salt daemons.
type Manager int

const (
	Unknown Manager = iota
	Systemd
	OpenRC
	SysVInit
	RCD
)

var managerStrings = [...]string{
	"unknown",
	"systemd",
	"openrc",
	"sysvinit",
	"rc.d",
}

func (m Manager) String() string {
	return managerStrings[m]
}

var (
	detectOnce sync.Once
	manager    Manager
)

// Detect probes the host init system once per process.
func Detect() Manager {
	detectOnce.Do(func() {
		manager = detect()
		log.Debug().Msgf("init system: %s", manager)
	})
	return manager
}

func detect() Manager {
	switch {
	case fs.PathExists("/run/systemd/system"):
		return Systemd
	case shell.Available("rc-service"):
		return OpenRC
	case fs.PathExists("/etc/rc.d") && shell.Available("sysrc"):
		return RCD
	case fs.PathExists("/etc/init.d"):
		return SysVInit
	}
	return Unknown
}

// Restart the service, starting it if it was not running.
func Restart(name string) (err error) {
	var output string
	switch Detect() {
	case Systemd:
		output, err = shell.Run("systemctl", "restart", name)
	case OpenRC:
		output, err = shell.Run("rc-service", name, "restart")
	case RCD:
		output, err = shell.Run("service", rcName(name), "restart")
	case SysVInit:
		output, err = shell.Run("/etc/init.d/"+name, "restart")
	default:
		return fmt.Errorf("no init system to restart %s with", name)
	}

	if err != nil {
		log.Error().Err(err).Msg(output)
	}
	return
}

// Enable the service at boot. Best effort on init systems without a
// uniform enable verb.
func Enable(name string) (err error) {
	switch Detect() {
	case Systemd:
		_, err = shell.Run("systemctl", "enable", name)
	case OpenRC:
		_, err = shell.Run("rc-update", "add", name, "default")
	case RCD:
		_, err = shell.Run("sysrc", rcName(name)+"_enable=YES")
	case SysVInit:
		if shell.Available("update-rc.d") {
			_, err = shell.Run("update-rc.d", name, "defaults")
		} else if shell.Available("chkconfig") {
			_, err = shell.Run("chkconfig", name, "on")
		}
	}
	return
}

// Status returns nil when the service is reported running.
func Status(name string) (err error) {
	switch Detect() {
	case Systemd:
		_, err = shell.Run("systemctl", "is-active", "--quiet", name)
	case OpenRC:
		_, err = shell.Run("rc-service", name, "status")
	case RCD:
		_, err = shell.Run("service", rcName(name), "status")
	case SysVInit:
		_, err = shell.Run("/etc/init.d/"+name, "status")
	default:
		err = fmt.Errorf("no init system to query %s with", name)
	}
	return
}

// Exists reports whether a service definition is installed at all.
func Exists(name string) bool {
	switch Detect() {
	case Systemd:
		_, err := shell.Run("systemctl", "cat", name)
		return err == nil
	case OpenRC, SysVInit:
		return fs.PathExists("/etc/init.d/" + name)
	case RCD:
		return fs.PathExists("/etc/rc.d/"+rcName(name)) ||
			fs.PathExists("/usr/local/etc/rc.d/"+rcName(name))
	}
	return false
}

// rc.d scripts use underscores where the daemons use dashes.
func rcName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// status is swappable for tests.
var status = Status

// WaitRunning polls the service state until it is running or the
// timeout expires. This replaces the traditional fixed settle sleep:
// the timeout is the same upper bound, but a daemon that comes up
// fast does not make the operator wait.
func WaitRunning(name string, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	for {
		err = status(name)
		if err == nil {
			return
		}

		if werr := limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%s did not come up within %v: %v",
				name, timeout, err)
		}
	}
}

// RestartAll restarts the daemons of every requested role. Families
// register this as their restart_daemons handler unless the distro
// needs something special.
func RestartAll(e *dispatch.Env) (err error) {
	for _, name := range daemons(e) {
		log.Info().Msgf("restart %s", name)
		err = Restart(name)
		if err != nil {
			return
		}
	}
	return
}

// EnableAll enables the daemons of every requested role at boot.
// Families whose packages do not enable services on install register
// this as a post_install handler.
func EnableAll(e *dispatch.Env) (err error) {
	for _, name := range daemons(e) {
		err = Enable(name)
		if err != nil {
			return
		}
	}
	return
}

// daemons returns the services the requested roles run.
func daemons(e *dispatch.Env) (names []string) {
	for _, role := range e.Options.Roles {
		if d := role.Daemon(); d != "" {
			names = append(names, d)
		}
	}
	return
}

// Check is the universal check_services handler: every requested
// role must have its service definition installed. A missing unit
// after a package install means the service manager is in an
// inconsistent state, which is fatal.
func Check(e *dispatch.Env) (err error) {
	for _, name := range daemons(e) {
		if !Exists(name) {
			return fmt.Errorf("service %s is not installed", name)
		}
		log.Debug().Msgf("service %s present", name)
	}
	return
}

// Running is the universal daemons_running handler: poll every
// requested daemon within the settle budget, falling back to a
// process-table scan for daemons the init system cannot see.
func Running(e *dispatch.Env) (err error) {
	for _, name := range daemons(e) {
		err = WaitRunning(name, e.Options.Settle)
		if err == nil {
			continue
		}

		if _, perr := shell.Run("pgrep", "-f", name); perr == nil {
			log.Warn().Msgf("%s not registered with %s, "+
				"but the process is alive", name, Detect())
			err = nil
			continue
		}

		return
	}
	return
}
