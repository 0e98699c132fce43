package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/seeql-labs/seeql/internal/executor"
)

// runREPL starts the interactive practice loop.
func runREPL(cmd *cobra.Command, eng *executor.Engine, opts *QueryOptions) error {
	out := cmd.OutOrStdout()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "seeql> ",
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("SELECT"),
			readline.PcItem("FROM"),
			readline.PcItem("WHERE"),
			readline.PcItem(".tables"),
			readline.PcItem(".schema"),
			readline.PcItem(".explain"),
			readline.PcItem(".help"),
			readline.PcItem(".quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(out, "SeeQL practice REPL")
	fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(out)

	explainEach := opts.Explain

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt("seeql> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if line == ".quit" || line == ".exit" {
				break
			}
			handleDotCommand(cmd, eng, line, &explainEach)
			continue
		}

		// Accumulate multi-line SQL until a semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}

		sqlQuery := strings.TrimSuffix(strings.TrimSpace(buf.String()), ";")
		buf.Reset()
		rl.SetPrompt("seeql> ")

		replOpts := *opts
		replOpts.Explain = explainEach
		if err := executeAndRender(cmd, eng, sqlQuery, &replOpts); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	return nil
}

// handleDotCommand handles the REPL meta commands.
func handleDotCommand(cmd *cobra.Command, eng *executor.Engine, line string, explainEach *bool) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)

	switch fields[0] {
	case ".help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  .tables          List the practice tables")
		fmt.Fprintln(out, "  .schema <table>  Show a table's columns")
		fmt.Fprintln(out, "  .explain on|off  Explain each query before running it")
		fmt.Fprintln(out, "  .quit            Exit")
		fmt.Fprintln(out, "End SQL statements with a semicolon.")

	case ".tables":
		rows, err := eng.Execute(cmd.Context(),
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name;")
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		for _, row := range rows.Rows {
			fmt.Fprintf(out, "  %v\n", row["name"])
		}

	case ".schema":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: .schema <table>")
			return
		}
		// PRAGMA is guarded, so read the schema from sqlite_master.
		rows, err := eng.Execute(cmd.Context(),
			fmt.Sprintf("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = '%s';",
				strings.ReplaceAll(fields[1], "'", "''")))
		if err != nil || len(rows.Rows) == 0 {
			fmt.Fprintf(out, "no such table: %s\n", fields[1])
			return
		}
		fmt.Fprintf(out, "%v\n", rows.Rows[0]["sql"])

	case ".explain":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: .explain on|off")
			return
		}
		*explainEach = fields[1] == "on"
		fmt.Fprintf(out, "explain is %s\n", fields[1])

	default:
		fmt.Fprintf(out, "unknown command %s (try .help)\n", fields[0])
	}
}
