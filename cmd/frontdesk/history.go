package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yamagen/frontdesk/internal/config"
	"github.com/yamagen/frontdesk/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [agent]",
	Short: "Show recorded runs",
	Long: `Show finished runs from the history database.

Without arguments, lists every agent with a recorded run. With an agent
name, lists that agent's runs with elapsed time and cost.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path := cfg.Paths.HistoryDB
		if path == "" {
			path = history.DefaultPath()
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return err
		}

		if len(args) == 0 {
			return listAgents(store)
		}
		return listRuns(store, args[0])
	},
}

func listAgents(store *history.Store) error {
	names, err := store.Agents()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, name := range names {
		recs, err := store.ListByAgent(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %d run(s)\n", color.CyanString("%-12s", name), len(recs))
	}
	return nil
}

func listRuns(store *history.Store, agent string) error {
	recs, err := store.ListByAgent(agent)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(os.Stderr, "No runs recorded for %q.\n", agent)
		return nil
	}
	for _, rec := range recs {
		elapsed := time.Duration(rec.ElapsedSeconds) * time.Second
		fmt.Printf("%s  %-8s  $%.4f  ¥%.1f  %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			elapsed, rec.CostUSD, rec.CostJPY, rec.Topic)
	}
	return nil
}
