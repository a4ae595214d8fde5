package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abelbrown/stagewatch/internal/stage"
	"github.com/abelbrown/stagewatch/internal/store"
)

var (
	historyLimit  int
	historyForget bool
)

var historyCmd = &cobra.Command{
	Use:   "history [team]",
	Short: "Show results recorded in the local journal",
	Long: `Without a team, list every team in the journal. With a team, show its
most recent results oldest first, each annotated with the change from the
one before.

--forget deletes the team's local journal entries. It does not touch the
service; use 'stagewatch reset' for that.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "results to show")
	historyCmd.Flags().BoolVar(&historyForget, "forget", false, "delete the team's journal entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		if historyForget {
			return errors.New("--forget needs a team")
		}
		teams, err := st.Teams()
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			fmt.Fprintln(out, noteStyle.Render("Journal is empty."))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TEAM\tRESULTS\tLAST STAGE\tLAST SEEN")
		for _, t := range teams {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Team, t.Results, t.LastStage, t.LastAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	}

	team := args[0]
	if historyForget {
		n, err := st.ForgetTeam(team)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Forgot %d results for team %q.\n", n, team)
		return nil
	}

	results, err := st.Recent(team, historyLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, noteStyle.Render(fmt.Sprintf("No results recorded for team %q.", team)))
		return nil
	}

	// Recent is newest first
	var prev stage.Distribution
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		who := r.Member
		if who == "" {
			who = "team"
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("#%d %s  %s  %s", r.ID, r.At.Local().Format("2006-01-02 15:04:05"), r.Source, who)))
		for _, line := range renderRows(stage.ComputeDelta(prev, r.Distribution)) {
			fmt.Fprintln(out, "  "+line)
		}
		fmt.Fprintln(out, "  "+finalLine(r.FinalStage, r.Distribution))
		fmt.Fprintln(out)
		prev = r.Distribution
	}
	return nil
}
