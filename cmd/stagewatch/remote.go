package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/stagewatch/internal/api"
	"github.com/abelbrown/stagewatch/internal/intake"
	"github.com/abelbrown/stagewatch/internal/session"
	"github.com/abelbrown/stagewatch/internal/store"
)

var (
	topK       int
	analyzeIn  string
	analyzeWho string
	upload     bool
	assumeYes  bool
	resetWho   string
)

var teamCmd = &cobra.Command{
	Use:   "team <team>",
	Short: "Show a team's stage distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *api.Client) error {
			info, err := c.TeamInfo(ctx, args[0])
			if err != nil {
				return notFoundHint(err, fmt.Sprintf("Team %q does not exist yet.", args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStage("Team "+args[0], info.Distribution, info.FinalStage, info.Feedback))
			return nil
		})
	},
}

var memberCmd = &cobra.Command{
	Use:   "member <team> <member>",
	Short: "Show a member's stage distribution and accumulated emotions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *api.Client) error {
			info, err := c.MemberInfo(ctx, args[0], args[1])
			if err != nil {
				return notFoundHint(err, fmt.Sprintf("Member %q does not exist in team %q yet.", args[1], args[0]))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStage(fmt.Sprintf("%s / %s", args[0], args[1]), info.Distribution, info.FinalStage, info.PersonalFeedback))
			fmt.Fprintln(out, renderEmotions(info.AccumEmotions, topK))
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <team> <member>",
	Short: "Fetch team and member views concurrently",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		team, member := args[0], args[1]
		return withClient(cmd, func(ctx context.Context, c *api.Client) error {
			var (
				ti api.TeamInfo
				mi api.MemberInfo
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				ti, err = c.TeamInfo(gctx, team)
				return err
			})
			g.Go(func() error {
				var err error
				mi, err = c.MemberInfo(gctx, team, member)
				if api.IsNotFound(err) {
					// a team can exist before this member has spoken
					mi = api.MemberInfo{FinalStage: "-"}
					return nil
				}
				return err
			})
			if err := g.Wait(); err != nil {
				return notFoundHint(err, fmt.Sprintf("Team %q does not exist yet.", team))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSideBySide(
				renderStage("Team "+team, ti.Distribution, ti.FinalStage, ti.Feedback),
				renderStage("Member "+member, mi.Distribution, mi.FinalStage, mi.PersonalFeedback),
			))
			return nil
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <team>",
	Short: "Analyze a chat log, one message per line",
	Long: `Analyze a chat log for a team. Lines come from --file, or from stdin
when no file is given. Blank lines are skipped.

With --upload the file is sent as-is to the upload endpoint instead of
being split into lines locally.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var resetCmd = &cobra.Command{
	Use:   "reset <team>",
	Short: "Clear a team's server-side history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		team := args[0]
		if !assumeYes && !confirm(cmd, fmt.Sprintf("Reset all server-side history for team %q?", team)) {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
		return withClient(cmd, func(ctx context.Context, c *api.Client) error {
			msg, err := c.Reset(ctx, team, resetWho)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

func init() {
	memberCmd.Flags().IntVar(&topK, "top", 10, "number of emotions to show")
	analyzeCmd.Flags().StringVarP(&analyzeIn, "file", "f", "", "chat log to analyze (default stdin)")
	analyzeCmd.Flags().StringVar(&analyzeWho, "member", "", "attribute the log to this member")
	analyzeCmd.Flags().BoolVar(&upload, "upload", false, "send the file to the upload endpoint")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	resetCmd.Flags().StringVar(&resetWho, "member", "", "member requesting the reset")

	rootCmd.AddCommand(teamCmd, memberCmd, statusCmd, analyzeCmd, resetCmd)
}

// withClient loads config, builds a client and runs fn with a context
// cancelled on interrupt.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *api.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return fn(ctx, newClient(cfg))
}

// notFoundHint turns a 404 into the friendly message used in the TUI.
func notFoundHint(err error, msg string) error {
	if api.IsNotFound(err) {
		return errors.New(msg)
	}
	return err
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	team := args[0]
	if err := session.ValidateTeam(team); err != nil {
		return err
	}
	if upload && analyzeIn == "" {
		return errors.New("--upload needs --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		raw string
		src = store.SourceAnalyze
	)
	if !upload {
		if analyzeIn != "" {
			raw, err = intake.ReadText(analyzeIn)
		} else {
			raw, err = readStdin(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
	}

	return withClient(cmd, func(ctx context.Context, c *api.Client) error {
		var (
			res  api.AnalysisResult
			note string
		)
		if upload {
			f, err := intake.Open(analyzeIn)
			if err != nil {
				return err
			}
			defer f.Close()
			src = store.SourceUpload
			res, err = c.AnalyzeFile(ctx, team, analyzeWho, filepath.Base(analyzeIn), f)
			if err != nil {
				return err
			}
			note = fmt.Sprintf("Analyzed uploaded chat log %s for team %s", filepath.Base(analyzeIn), team)
		} else {
			lines, err := session.ValidateBulk(session.ModeAnalysis, team, raw)
			if err != nil {
				return err
			}
			res, err = c.Analyze(ctx, api.AnalyzeRequest{TeamName: team, MemberName: analyzeWho, Lines: lines})
			if err != nil {
				return err
			}
			note = fmt.Sprintf("Analyzed %d lines for team %s", len(lines), team)
		}

		if st := openJournal(cfg); st != nil {
			defer st.Close()
			if _, err := st.Record(store.Result{
				Team: team, Member: analyzeWho, Source: src,
				FinalStage: res.FinalStage, Feedback: res.Feedback, Distribution: res.Distribution,
			}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: journal: %v\n", err)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, noteStyle.Render(note))
		fmt.Fprintln(out, renderStage("Team "+team, res.Distribution, res.FinalStage, res.Feedback))
		return nil
	})
}

func readStdin(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && isTerminal(f) {
		fmt.Fprintln(os.Stderr, "reading chat log from stdin, end with Ctrl-D")
	}
	b, err := io.ReadAll(io.LimitReader(r, intake.MaxSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > intake.MaxSize {
		return "", intake.ErrTooLarge
	}
	return string(b), nil
}
