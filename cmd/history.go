package cmd

import (
	"fmt"
	"strings"

	"gopkg.in/logrusorgru/aurora.v2"

	"code.dumpstack.io/tools/salt-bootstrap/config"
	"code.dumpstack.io/tools/salt-bootstrap/journal"
)

// HistoryCmd shows past bootstrap runs, newest first.
type HistoryCmd struct {
	Num int `help:"how many runs to show" default:"20"`
}

func (cmd *HistoryCmd) Run(g *Globals) (err error) {
	conf, err := config.Read(g.Config)
	if err != nil {
		return
	}

	j, err := journal.Open(conf.Journal)
	if err != nil {
		return
	}
	defer j.Close()

	runs, err := j.Runs(cmd.Num)
	if err != nil {
		return
	}

	for _, r := range runs {
		var steps []string
		for _, s := range r.Steps {
			if s.Invoked {
				steps = append(steps, s.Handler)
			}
		}

		fmt.Println(aurora.Sprintf("[%4d] [%s] %s-%s %s (%s): %s %s",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Distro, r.Release, r.Type, r.Roles,
			okFail(r.Ok), strings.Join(steps, " ")))
	}
	return
}

func okFail(ok bool) aurora.Value {
	if ok {
		return aurora.BgGreen(aurora.Black(" SUCCESS "))
	}
	return aurora.BgRed(aurora.Bold(" FAILURE "))
}
