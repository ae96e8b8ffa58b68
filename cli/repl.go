package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/fetchql/fetchql/eval"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Statements end with a semicolon and may span multiple lines.
Variables declared with DECLARE persist for the whole session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		line := liner.NewLiner()
		defer line.Close()

		line.SetCtrlCAborts(true)

		historyPath := filepath.Join(os.TempDir(), ".fetchql_history")

		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}

		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()

		scope := eval.NewScope()

		var buffer strings.Builder

		for {
			prompt := "fetchql> "
			if buffer.Len() > 0 {
				prompt = "      -> "
			}

			input, err := line.Prompt(prompt)
			if err == liner.ErrPromptAborted {
				buffer.Reset()
				continue
			}

			if err == io.EOF {
				fmt.Println()
				return nil
			}

			if err != nil {
				return err
			}

			trimmed := strings.TrimSpace(input)
			if buffer.Len() == 0 && (trimmed == "" || strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit")) {
				if trimmed == "" {
					continue
				}

				return nil
			}

			buffer.WriteString(input)
			buffer.WriteString("\n")

			if !strings.HasSuffix(trimmed, ";") {
				continue
			}

			statement := buffer.String()
			buffer.Reset()
			line.AppendHistory(strings.TrimSpace(statement))

			results, err := eng.ExecuteScript(cmd.Context(), statement, scope)

			for _, result := range results {
				if printErr := printResult(os.Stdout, result, flagFormat); printErr != nil {
					fmt.Fprintln(os.Stderr, "error:", printErr)
				}
			}

			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
	},
}
