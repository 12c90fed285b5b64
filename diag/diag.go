package diag

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
	"code.dumpstack.io/tools/salt-bootstrap/fs"
	"code.dumpstack.io/tools/salt-bootstrap/service"
	"code.dumpstack.io/tools/salt-bootstrap/shell"
)

const logLines = "50"

// Collect gathers whatever state may explain a verification failure:
// service status, recent daemon logs, the process table. Everything
// here is best effort; a failing collector is itself only logged.
func Collect(e *dispatch.Env) {
	log.Info().Msg("gathering diagnostics")
	log.Trace().Msg(spew.Sdump(e.Context))

	swg := sizedwaitgroup.New(4)

	for _, role := range e.Options.Roles {
		daemon := role.Daemon()
		if daemon == "" {
			continue
		}

		swg.Add()
		go func(name string) {
			defer swg.Done()
			collectDaemon(name)
		}(daemon)
	}

	swg.Add()
	go func() {
		defer swg.Done()

		output, err := shell.Run("ps", "aux")
		if err != nil {
			log.Warn().Err(err).Msg("process listing")
			return
		}
		log.Info().Msgf("processes:\n%s", output)
	}()

	swg.Wait()
}

func collectDaemon(name string) {
	flog := log.With().Str("daemon", name).Logger()

	if err := service.Status(name); err != nil {
		flog.Warn().Err(err).Msg("status")
	}

	var output string
	var err error
	if service.Detect() == service.Systemd {
		output, err = shell.Run("journalctl",
			"-u", name, "--no-pager", "-n", logLines)
	} else {
		logfile := "/var/log/salt/" + name[len("salt-"):]
		if !fs.PathExists(logfile) {
			return
		}
		output, err = shell.Run("tail", "-n", logLines, logfile)
	}

	if err != nil {
		flog.Warn().Err(err).Msg("logs")
		return
	}
	flog.Info().Msgf("logs:\n%s", output)
}
