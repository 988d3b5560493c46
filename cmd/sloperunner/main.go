package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	gitCommit = "unknown"
)

var CLI struct {
	Version   kong.VersionFlag `help:"Print version information and exit." short:"v"`
	Debug     bool             `help:"Whether to enable debug logging."`
	ConfigDir string           `help:"Directory containing sloperunner.cfg.json." default:"." type:"path"`

	Serve struct {
	} `cmd:"" help:"Serve the leaderboard API."`

	Play struct {
		Name      string `help:"Name to submit qualifying scores under. Empty skips submission."`
		Runs      int    `help:"Number of runs to play." default:"1"`
		Autopilot bool   `help:"Steer with the built-in obstacle avoider."`
		Strict    bool   `help:"Abort on state machine violations instead of recovering."`
	} `cmd:"" help:"Play runs at the configured tick rate."`

	Leaderboard struct {
	} `cmd:"" help:"Print the current leaderboard."`

	Config struct {
	} `cmd:"" help:"Write the effective configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("sloperunner"),
		kong.Description("slope runner simulation and leaderboard"),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("sloperunner %s (commit %s)", version, gitCommit)},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	command := ctx.Command()
	a, err := newApp(CLI.ConfigDir, CLI.Debug, command)
	if err != nil {
		writeError(err)
	}
	defer a.Close()

	switch command {
	case "serve":
		err = serveCommand(a)
	case "play":
		err = playCommand(a, playOptions{
			Name:      CLI.Play.Name,
			Runs:      CLI.Play.Runs,
			Autopilot: CLI.Play.Autopilot,
			Strict:    CLI.Play.Strict,
		})
	case "leaderboard":
		err = leaderboardCommand(a, os.Stdout)
	case "config":
		err = configCommand(os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		a.Close()
		writeError(err)
	}
}
