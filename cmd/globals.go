package cmd

// Globals are the options shared by every subcommand.
type Globals struct {
	Config string `help:"path to bootstrap configuration" default:"~/.salt-bootstrap/bootstrap.toml" type:"path"`
}
