package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <trace> [analysis[=arg]...]",
	Short: "Run analyses non-interactively",
	Long: `Run a list of analyses in order and exit. Each analysis may take an
argument after '='. With no analyses, the summary is printed.

Analyses:
` + analysisUsage(),
	Example: `
# Last 50 instructions, then hot PCs visited 100+ times
gbtrace run trace.json last=50 hot=100

# Register A and HL over time as JSON
gbtrace run trace.json registers=a,h,l --json

# Without the metadata header
gbtrace run -q trace.json findings
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")

		steps := make([]step, 0, len(args)-1)
		for _, a := range args[1:] {
			st, err := parseStep(a)
			if err != nil {
				return err
			}
			steps = append(steps, st)
		}
		if len(steps) == 0 {
			steps = append(steps, step{name: "summary"})
		}

		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		s.quiet = quiet
		slog.Debug("Running analysis", "file", args[0], "steps", len(steps))
		return s.execute(steps)
	},
}

func init() {
	runCmd.Flags().BoolP("quiet", "q", false, "Skip the metadata header")
	rootCmd.AddCommand(runCmd)
}
