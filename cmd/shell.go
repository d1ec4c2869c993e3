package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/ingest"
	"github.com/pable/go-telemetry-metrics/internal/model"
	"github.com/pable/go-telemetry-metrics/internal/report"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("tmetrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if cmd.Context().Err() != nil {
			return nil
		}
		cPrompt.Print("tmetrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellList(db)
		case "show":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: show <hash-prefix>")
				continue
			}
			if d := shellLoad(db, args[0], ""); d != nil {
				shellErr(showDataset(os.Stdout, d))
			}
		case "kills":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: kills <hash-prefix> [server]")
				continue
			}
			if d := shellLoad(db, args[0], model.KindInteractions); d != nil {
				printKills(os.Stdout, d, optArg(args, 1), cfg.TopRivalries, false)
			}
		case "player":
			if len(args) < 2 {
				cError.Fprintln(os.Stderr, "usage: player <hash-prefix> <name> [server]")
				continue
			}
			if d := shellLoad(db, args[0], model.KindInteractions); d != nil {
				shellErr(printPlayer(os.Stdout, d, args[1], optArg(args, 2)))
			}
		case "rivalries":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: rivalries <hash-prefix> [n]")
				continue
			}
			shellRivalries(db, args[0], optArg(args, 1))
		case "deaths":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: deaths <hash-prefix> [cause]")
				continue
			}
			if d := shellLoad(db, args[0], model.KindDeaths); d != nil {
				shellErr(printDeaths(os.Stdout, d, aggregator.DeathFilter{Cause: optArg(args, 1)}))
			}
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			cols, rows, err := db.QueryRaw(strings.Join(args, " "))
			if err != nil {
				shellErr(err)
				continue
			}
			report.PrintQueryResult(os.Stdout, cols, rows)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored datasets"},
		{"show <hash-prefix>", "default report of a dataset"},
		{"kills <hash-prefix> [server]", "kill log report, optionally for one server"},
		{"player <hash-prefix> <name> [server]", "per-player kill breakdown"},
		{"rivalries <hash-prefix> [n]", "top n rivalries (0 = all)"},
		{"deaths <hash-prefix> [cause]", "death-location report"},
		{"sql <query>", "raw SQL against the store"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) {
	datasets, err := db.ListDatasets()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(datasets) == 0 {
		cMuted.Println("No datasets stored yet.")
		return
	}
	report.PrintDatasets(os.Stdout, datasets)
}

func shellRivalries(db *storage.DB, prefix, rawN string) {
	n := cfg.TopRivalries
	if rawN != "" {
		v, err := strconv.Atoi(rawN)
		if err != nil || v < 0 {
			cError.Fprintf(os.Stderr, "invalid count %q\n", rawN)
			return
		}
		n = v
	}
	d := shellLoad(db, prefix, model.KindInteractions)
	if d == nil {
		return
	}
	p := cfg.Pipeline(ids, "")
	p.TopRivalries = n
	r := p.Run(d.Interactions)
	cHeader.Fprintf(os.Stdout, "\n--- Rivalries: %s ---\n\n", d.Name)
	report.PrintRivalries(os.Stdout, r.Rivalries)
}

// shellLoad resolves a dataset, printing the error and returning nil on failure.
func shellLoad(db *storage.DB, prefix, kind string) *ingest.Dataset {
	d, err := db.Load(prefix, kind)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "no dataset found with prefix %q\n", prefix)
		return nil
	}
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return nil
	}
	return d
}

func shellErr(err error) {
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func optArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
