package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gbtrace/internal/gbtrace/styles"
	"gbtrace/internal/render"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <trace>",
	Short: "Print trace metadata and counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		return s.execute([]step{{name: "summary"}, {name: "histogram", arg: "10"}})
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range <trace> START END",
	Short: "List instructions whose PC lies in [START, END]",
	Example: `
gbtrace range trace.json 0150 0200
gbtrace range trace.json 0x4000 0x7FFF --no-registers
  `,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng := args[1] + "-" + args[2]
		if _, _, err := parseRange(rng); err != nil {
			return err
		}
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		return s.execute([]step{{name: "range", arg: rng}})
	},
}

var loopStrategies = map[string][]string{
	"window":    {"loops"},
	"frequency": {"hot"},
	"tight":     {"tight"},
	"sequence":  {"sequences"},
	"all":       {"loops", "hot", "tight", "sequences", "findings"},
}

var loopsCmd = &cobra.Command{
	Use:   "loops <trace>",
	Short: "Detect loops and hot addresses",
	Long: `Detect repetition with one or more strategies:

  window     repeated PC windows (overlapping windows each count)
  frequency  PCs executed at least --min-repeats times anywhere
  tight      one instruction repeated back to back
  sequence   short instruction sequences repeated back to back
  all        every strategy plus a verdict on whether execution ends stuck`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		names, ok := loopStrategies[strategy]
		if !ok {
			return fmt.Errorf("unknown strategy %q: want window, frequency, tight, sequence or all", strategy)
		}

		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		overrides := []struct {
			flag string
			dst  *int
		}{
			{"window", &s.cfg.Loops.WindowSize},
			{"min-iterations", &s.cfg.Loops.MinIterations},
			{"min-repeats", &s.cfg.Loops.MinRepeats},
			{"threshold", &s.cfg.Loops.TightThreshold},
			{"max-len", &s.cfg.Loops.MaxSequenceLen},
		}
		for _, o := range overrides {
			if cmd.Flags().Changed(o.flag) {
				v, _ := cmd.Flags().GetInt(o.flag)
				*o.dst = v
			}
		}
		if err := s.cfg.Validate(); err != nil {
			return err
		}

		steps := make([]step, len(names))
		for i, name := range names {
			steps[i] = step{name: name}
		}
		return s.execute(steps)
	},
}

var registersCmd = &cobra.Command{
	Use:   "registers <trace> REG...",
	Short: "Follow 8-bit register values over time",
	Long:  "Print every captured value of each register (a, f, b, c, d, e, h, l) in execution order.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		return s.execute([]step{{name: "registers", arg: strings.Join(args[1:], ",")}})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <trace>",
	Short: "Write a markdown report of every analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}
		md := s.report()

		raw, _ := cmd.Flags().GetBool("raw")
		if raw || !s.terminal {
			_, err := fmt.Fprint(s.out, md)
			return err
		}
		width, _ := cmd.Flags().GetInt("width")
		r, err := styles.MarkdownRenderer(s.cfg.Output.Theme, width)
		if err != nil {
			return err
		}
		rendered, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		_, err = fmt.Fprint(s.out, rendered)
		return err
	},
}

func (s *session) report() string {
	return render.Report(s.trace, render.ReportOptions{
		Title:      s.file,
		Top:        s.cfg.Histogram.Top,
		Limit:      s.cfg.Output.Limit,
		Last:       10,
		Registers:  s.cfg.ShowRegisters,
		Window:     s.windowOptions(),
		MinRepeats: s.cfg.Loops.MinRepeats,
		Tight:      s.cfg.Loops.TightThreshold,
		Sequence:   s.sequenceOptions(),
	})
}

func init() {
	loopsCmd.Flags().StringP("strategy", "s", "all", "window, frequency, tight, sequence or all")
	loopsCmd.Flags().IntP("window", "w", 0, "PC window length (default from config)")
	loopsCmd.Flags().Int("min-iterations", 0, "Window repeats that count as a loop")
	loopsCmd.Flags().Int("min-repeats", 0, "Visits that make a PC hot")
	loopsCmd.Flags().Int("threshold", 0, "Consecutive repeats that make a tight loop")
	loopsCmd.Flags().Int("max-len", 0, "Longest sequence pattern tried")

	reportCmd.Flags().Bool("raw", false, "Print markdown source instead of rendering it")
	reportCmd.Flags().Int("width", 100, "Word wrap width for rendered output")

	rootCmd.AddCommand(summaryCmd, rangeCmd, loopsCmd, registersCmd, reportCmd)
}
