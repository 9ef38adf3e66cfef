package args

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/spf13/cobra"

	"github.com/markis/gh-minigpt/internal/config"
)

const editCommand = "edit"

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Prompts      []string
	Model        string
	Command      string
	Input        string
	File         string
	Lines        string
	UsePlainText bool
	Debug        bool
}

// Instruction joins the collected prompts into a single instruction.
func (a Arguments) Instruction() string {
	return strings.Join(a.Prompts, "\n\n")
}

// ParseArgs parses argv (without the program name) and, when stdin is not
// nil, the piped input. Predefined prompts from cfg become subcommands.
func ParseArgs(cfg *config.Config, argv []string, stdin io.Reader) (Arguments, error) {
	args := Arguments{}

	rootCmd := &cobra.Command{
		Use:   "minigpt [command] [flags] [instruction]",
		Short: "Stream a chat completion for an instruction and the piped text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			// Handle direct prompts (when no command is specified)
			if len(cmdArgs) > 0 {
				args.Prompts = append(args.Prompts, cmdArgs[0])
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&args.Model, "model", "", "The AI model to use (default from config; a leading # in the instruction picks the alternate model)")
	rootCmd.PersistentFlags().BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	rootCmd.PersistentFlags().BoolVar(&args.Debug, "debug", false, "Log stream and request details to stderr")

	editCmd := &cobra.Command{
		Use:   editCommand + " FILE [instruction]",
		Short: "Replace a line range of FILE with the completion",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Command = editCommand
			args.File = cmdArgs[0]
			if len(cmdArgs) > 1 {
				args.Prompts = append(args.Prompts, cmdArgs[1])
			}
			return nil
		},
	}
	editCmd.Flags().StringVar(&args.Lines, "lines", "", "Lines to replace, N or A:B (1-based, inclusive)")
	_ = editCmd.MarkFlagRequired("lines")
	rootCmd.AddCommand(editCmd)

	// Add predefined commands
	for name, prompt := range cfg.Prompts {
		if name == editCommand {
			continue
		}
		cmdPrompt := prompt // Create a local copy for the closure
		cmd := &cobra.Command{
			Use:   name + " [input]",
			Short: summarizePrompt(cmdPrompt.Prompt),
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Command = name
				if len(cmdArgs) > 0 {
					args.Prompts = append(args.Prompts, cmdArgs[0])
				}
				args.Prompts = append(args.Prompts, cmdPrompt.Prompt)
				if cmdPrompt.Model != "" && args.Model == "" {
					args.Model = cmdPrompt.Model
				}
				return nil
			},
		}
		rootCmd.AddCommand(cmd)
	}

	// Read from stdin if available
	if stdin != nil {
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
		var buf strings.Builder
		for scanner.Scan() {
			buf.WriteString(scanner.Text())
			buf.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return Arguments{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		args.Input = strings.TrimSpace(buf.String())
	}

	// Execute the command
	rootCmd.SetArgs(argv)
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		return Arguments{}, err
	}
	if helpRequested(cmd) {
		return Arguments{}, ErrHelp
	}

	// Check if we have anything to send
	if len(args.Prompts) == 0 && args.Input == "" && args.File == "" {
		return Arguments{}, errors.New("no instruction or input provided")
	}

	return args, nil
}

// ErrHelp is returned after help output was printed.
var ErrHelp = errors.New("help requested")

func helpRequested(cmd *cobra.Command) bool {
	help, err := cmd.Flags().GetBool("help")
	return err == nil && help
}

// StdinIfPiped returns os.Stdin when it is not a terminal, nil otherwise.
func StdinIfPiped() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg *config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// Check if output is being redirected
	t := term.FromEnv()
	if !t.IsTerminalOutput() {
		return true
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if termEnv := os.Getenv("TERM"); termEnv == "dumb" {
		return true
	}

	return false
}

func summarizePrompt(prompt string) string {
	// Trim and limit the length of the prompt summary
	summary := strings.TrimSpace(prompt)
	if len(summary) > 60 {
		summary = summary[:57] + "..."
	}
	return summary
}
