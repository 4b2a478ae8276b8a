package commands

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start a review session (connect once, then generate, accept and reject)",
		Long: `Start a session for working through a week's suggestions without reconnecting
for every command. Type 'help' for the commands, 'exit' or 'quit' to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commands := sessionCommands(cmd.Parent())

			fmt.Printf("\nReview session for organization %d\n", app.Cfg.OrganizationID)
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}

				parts, err := splitCommandLine(scanner.Text())
				if err != nil {
					fmt.Printf("❌ %v\n\n", err)
					continue
				}
				if len(parts) == 0 {
					continue
				}

				switch name := parts[0]; name {
				case "exit", "quit":
					return nil
				case "help":
					printSessionHelp(commands)
				default:
					target, ok := commands[name]
					if !ok {
						fmt.Printf("❌ Unknown command: %s (type 'help' for available commands)\n\n", name)
						continue
					}
					if err := runInSession(target, parts[1:]); err != nil {
						fmt.Printf("❌ Error: %v\n\n", err)
					}
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
			return nil
		},
	}
}

func sessionCommands(root *cobra.Command) map[string]*cobra.Command {
	commands := make(map[string]*cobra.Command)
	for _, sub := range root.Commands() {
		switch sub.Name() {
		case "interactive", "completion", "help", "runSweeper":
			continue
		}
		commands[sub.Name()] = sub
	}
	return commands
}

// runInSession calls the command's RunE directly so the root's
// PersistentPreRunE does not reconnect on every line
func runInSession(cmd *cobra.Command, args []string) error {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		_ = flag.Value.Set(flag.DefValue)
	})

	if err := cmd.ParseFlags(args); err != nil {
		return err
	}
	args = cmd.Flags().Args()

	if cmd.Args != nil {
		if err := cmd.Args(cmd, args); err != nil {
			return err
		}
	}
	return cmd.RunE(cmd, args)
}

func printSessionHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")
	for _, name := range slices.Sorted(maps.Keys(commands)) {
		fmt.Printf("  %-60s %s\n", commands[name].Use, commands[name].Short)
	}
	fmt.Printf("\n  %-60s %s\n", "help", "Show this help message")
	fmt.Printf("  %-60s %s\n\n", "exit, quit", "End the session")
}

// splitCommandLine splits a line on whitespace. Single or double quotes
// group words, so a rejection reason can contain spaces.
func splitCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	quoted := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			quoted = true
		case unicode.IsSpace(r):
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", quote)
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args, nil
}
