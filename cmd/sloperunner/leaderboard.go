package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sloperunner/engine/internal/api"
	"github.com/sloperunner/engine/internal/config"
)

func leaderboardCommand(a *app, w io.Writer) error {
	client := api.New(config.GetString("api.serverUrl"), config.GetDuration("api.timeout"))
	entries, err := client.Leaderboard(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "leaderboard is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSCORE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, e.Name, e.Score)
	}
	a.Logger.Debug("Printed leaderboard", "entries", len(entries))
	return tw.Flush()
}
