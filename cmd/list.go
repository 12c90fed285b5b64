package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"

	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

// ListCmd shows every distro with registered handlers. Useful to
// answer "will this tool work on my box" without running it.
type ListCmd struct {
	Handlers bool `help:"also show the registered handlers"`
}

func (cmd *ListCmd) Run(g *Globals) (err error) {
	table := tablewriter.NewWriter(os.Stdout)

	if !cmd.Handlers {
		table.SetHeader([]string{"distro"})
		for _, name := range dispatch.Distros() {
			table.Append([]string{name})
		}
		table.Render()
		return
	}

	table.SetHeader([]string{"distro", "operation", "handler"})
	for _, name := range dispatch.Distros() {
		for _, b := range dispatch.Bindings(name) {
			table.Append([]string{
				name, b.Kind.String(), b.Name(),
			})
		}
	}
	table.Render()
	return
}
