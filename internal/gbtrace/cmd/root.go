package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"gbtrace/internal/config"
	"gbtrace/internal/gbtrace/log"
	"gbtrace/internal/logging"
	"gbtrace/internal/render"
	"gbtrace/internal/trace"
	"gbtrace/internal/ui/colorize"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $GBTRACE_CONFIG or ./gbtrace.toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output results as JSON")
	rootCmd.PersistentFlags().Bool("no-registers", false, "Hide register snapshots next to entries")
	rootCmd.PersistentFlags().Int("limit", -1, "Rows per list before eliding, 0 shows all (default from config)")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show summary without TUI")
	rootCmd.Flags().IntP("last", "l", 0, "Show the last N instructions")
	rootCmd.Flags().StringP("inst", "i", "", "Find instructions containing TEXT (case-insensitive)")
	rootCmd.Flags().StringP("range", "r", "", "Show instructions with PC in START-END (hex)")
	rootCmd.Flags().Bool("histogram", false, "Show instruction frequency histogram")
	rootCmd.Flags().IntP("top", "t", 0, "Histogram rows (default from config)")
	rootCmd.Flags().Bool("loops", false, "Detect windowed loops")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "gbtrace <trace>",
	Short: "Game Boy execution trace analyzer",
	Long: `gbtrace inspects execution traces recorded by the emulator's test runner.
It filters entries, ranks instructions, finds loops and follows registers,
and opens an interactive browser when run on a terminal without analysis flags.`,
	Example: `
# Browse a trace interactively
gbtrace target/traces/1700000000_trace.json

# Last 20 instructions and the histogram, no TUI
gbtrace trace.json --last 20 --histogram

# Instructions between 0x0150 and 0x0200
gbtrace trace.json --range 0150-0200
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		s, err := openSession(cmd, args[0])
		if err != nil {
			return err
		}

		steps, err := rootSteps(cmd)
		if err != nil {
			return err
		}
		if len(steps) > 0 {
			return s.execute(steps)
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		if s.json || noTUI || !s.terminal {
			if err := s.execute([]step{{name: "summary"}}); err != nil {
				return err
			}
			if !s.json {
				s.render.Hint(
					fmt.Sprintf("gbtrace %s --last 20", args[0]),
					fmt.Sprintf("gbtrace %s --histogram", args[0]),
					fmt.Sprintf("gbtrace loops %s --strategy all", args[0]),
				)
			}
			return nil
		}

		program := tea.NewProgram(
			NewModel(s),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

// rootSteps maps the root analysis flags to steps, in the order the
// sections are printed.
func rootSteps(cmd *cobra.Command) ([]step, error) {
	var steps []step
	if cmd.Flags().Changed("last") {
		// n <= 0 asks for nothing and gets an empty section
		last, _ := cmd.Flags().GetInt("last")
		steps = append(steps, step{name: "last", arg: strconv.Itoa(max(last, 0))})
	}
	if inst, _ := cmd.Flags().GetString("inst"); inst != "" {
		steps = append(steps, step{name: "inst", arg: inst})
	}
	if rng, _ := cmd.Flags().GetString("range"); rng != "" {
		if _, _, err := parseRange(rng); err != nil {
			return nil, err
		}
		steps = append(steps, step{name: "range", arg: rng})
	}
	if hist, _ := cmd.Flags().GetBool("histogram"); hist {
		st := step{name: "histogram"}
		if top, _ := cmd.Flags().GetInt("top"); top > 0 {
			st.arg = strconv.Itoa(top)
		}
		steps = append(steps, st)
	}
	if loops, _ := cmd.Flags().GetBool("loops"); loops {
		steps = append(steps, step{name: "loops"})
	}
	return steps, nil
}

// session is a loaded trace plus the settings every command resolves the
// same way: config file, then flags.
type session struct {
	cfg      config.Config
	file     string
	trace    *trace.Trace
	out      io.Writer
	json     bool
	terminal bool
	quiet    bool // skip the metadata header
	render   *render.Renderer
	doc      *render.Document
}

func openSession(cmd *cobra.Command, file string) (*session, error) {
	cfg, err := loadConfig(cmd, file)
	if err != nil {
		return nil, err
	}

	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("trace file not found: %s", file)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	t, err := trace.Load(absPath)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	s := &session{cfg: cfg, file: file, trace: t, out: out, terminal: isTerminal(out)}
	s.json, _ = cmd.Flags().GetBool("json")

	color := s.terminal && !cfg.NoColor && colorize.Enabled()
	s.render = render.New(out, render.Options{
		Color:     color,
		Registers: cfg.ShowRegisters,
		Limit:     cfg.Output.Limit,
	})
	s.doc = render.NewDocument(file, t)
	return s, nil
}

// loadConfig resolves the config file, applies flag overrides and sets up
// logging for a run over file.
func loadConfig(cmd *cobra.Command, file string) (config.Config, error) {
	debug, _ := cmd.Flags().GetBool("debug")

	cwd, err := ResolveCwd(cmd)
	if err != nil {
		log.Setup(logging.Options{Trace: file}, debug)
		return config.Config{}, err
	}
	explicit, _ := cmd.Flags().GetString("config")
	cfg, path, err := config.Resolve(explicit, cwd)
	log.Setup(logging.Options{Level: cfg.LogLevel, Dir: cwd, Trace: file}, debug || cfg.Debug)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		slog.Debug("Loaded config", "path", path)
	}

	if noRegs, _ := cmd.Flags().GetBool("no-registers"); noRegs {
		cfg.ShowRegisters = false
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit >= 0 {
		cfg.Output.Limit = limit
	}
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// parseHex reads a 16-bit address written as 0150, 0x0150 or $0150.
func parseHex(s string) (uint16, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(h), "0x"), "$")
	v, err := strconv.ParseUint(h, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: must be a hex number (e.g., 0x0150)", s)
	}
	return uint16(v), nil
}

// parseRange reads "START-END" or "START:END".
func parseRange(s string) (uint16, uint16, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		lo, hi, ok = strings.Cut(s, ":")
	}
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q: want START-END", s)
	}
	start, err := parseHex(lo)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseHex(hi)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func Execute() {
	defer log.Close()

	// Bypass fang when output is piped or --no-tui is given, so help and
	// errors stay plain text
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}
	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
	} else {
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %w", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return cwd, nil
}
