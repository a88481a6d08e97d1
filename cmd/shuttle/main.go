package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shuttle-go/internal/app"
	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a TransferApp. The caller must defer
// app.Close(). deviceName selects a configured device; "" picks the first
// attached one.
func newApp(deviceName string) (*app.TransferApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewTransferApp(cfg, deviceName)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

// runTransfer holds the shared body of the copy and move commands.
func runTransfer(cmd *cobra.Command, args []string, mode shuttle.TransferMode) error {
	patterns, _ := cmd.Flags().GetStringArray("pattern")
	deviceName, _ := cmd.Flags().GetString("device")
	skipCheck, _ := cmd.Flags().GetBool("skip-ambiguity-check")
	encrypt, _ := cmd.Flags().GetBool("encrypt")

	a, err := newApp(deviceName)
	if err != nil {
		return err
	}
	defer a.Close()

	var summary *shuttle.TransferSummary
	if mode == shuttle.ModeMove {
		summary, err = a.Move(args[0], args[1], patterns, skipCheck, encrypt)
	} else {
		summary, err = a.Copy(args[0], args[1], patterns, skipCheck, encrypt)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Matched %d file(s): %d transferred, %d failed, %d folder(s) skipped\n",
		summary.Matched, summary.Transferred, summary.Failed, summary.SkippedFolders)
	if summary.Matched == 0 {
		fmt.Println("No files matched.")
	}
	if summary.Cleanup.TimedOut > 0 {
		fmt.Printf("%d staged file(s) left behind after cleanup timeout\n", summary.Cleanup.TimedOut)
	}
	if summary.Status != shuttle.StatusSuccess {
		fmt.Printf("Run #%d finished with status: %s\n", summary.RunID, summary.Status)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "shuttle",
	Short: "Move files between the host and device storage",
}

// copy command
var copyCmd = &cobra.Command{
	Use:   "copy SOURCE DEST",
	Short: "Copy matching files from SOURCE to DEST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, shuttle.ModeCopy)
	},
}

// move command
var moveCmd = &cobra.Command{
	Use:   "move SOURCE DEST",
	Short: "Move matching files from SOURCE to DEST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(cmd, args, shuttle.ModeMove)
	},
}

// resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve PATH",
	Short: "Show how a source path splits into directory and pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, _ := cmd.Flags().GetStringArray("pattern")
		deviceName, _ := cmd.Flags().GetString("device")
		skipCheck, _ := cmd.Flags().GetBool("skip-ambiguity-check")

		a, err := newApp(deviceName)
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.Resolve(args[0], patterns, skipCheck)
		if err != nil {
			return err
		}

		matchType := "files"
		if src.IsDirectoryMatch {
			matchType = "directory"
		}
		fmt.Printf("Directory:  %s\n", src.Directory)
		fmt.Printf("Pattern:    %s\n", src.FilePattern)
		fmt.Printf("Match type: %s\n", matchType)
		return nil
	},
}

// devices command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List configured devices and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		statuses := app.DeviceStatuses(cfg)
		if len(statuses) == 0 {
			fmt.Println("No devices configured.")
			return nil
		}

		for _, s := range statuses {
			if s.Attached {
				fmt.Printf("%-15s  %-7s  attached  %s\n", s.Name, s.Type, strings.Join(s.Folders, ", "))
			} else {
				fmt.Printf("%-15s  %-7s  detached  (%v)\n", s.Name, s.Type, s.AttachErr)
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "View transfer run history, or one run's files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", args[0], err)
			}
			return printRunItems(a, runID)
		}

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No transfer runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if run.FinishedAt.Valid {
				d := run.FinishedAt.Time.Sub(run.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-4s  %s  %-8s  %d ok / %d failed  %s\n",
				run.ID,
				run.Operation,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				run.Transferred,
				run.Failed,
				duration,
			)
		}
		return nil
	},
}

func printRunItems(a *app.TransferApp, runID int64) error {
	items, err := a.RunItems(runID)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("No files recorded for this run.")
		return nil
	}

	for _, item := range items {
		line := fmt.Sprintf("%-11s  %10d  %s", item.Status, item.Size, item.Name)
		if item.Error != "" {
			line += "  (" + item.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		// Create config with defaults
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", cfg.HostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Devices:  %d configured\n", len(cfg.Devices))
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if passphrase == "" {
			return fmt.Errorf("passphrase must not be empty")
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt FILE [OUTPUT]",
	Short: "Decrypt a file written by an encrypted transfer",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := strings.TrimSuffix(args[0], shuttle.EncryptedSuffix)
		if len(args) == 2 {
			outPath = args[1]
		} else if outPath == args[0] {
			return fmt.Errorf("input does not end in %s, output path required", shuttle.EncryptedSuffix)
		}

		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		dec, err := a.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer in.Close()

		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}

		if err := dec.Decrypt(in, out); err != nil {
			out.Close()
			os.Remove(outPath)
			return err
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing output: %w", err)
		}

		fmt.Printf("Decrypted to %s\n", outPath)
		return nil
	},
}

func init() {
	// transfer commands
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(moveCmd)
	for _, cmd := range []*cobra.Command{copyCmd, moveCmd} {
		cmd.Flags().StringArrayP("pattern", "p", nil, "Wildcard pattern to match (repeatable)")
		cmd.Flags().String("device", "", "Device to transfer against")
		cmd.Flags().Bool("skip-ambiguity-check", false, "Do not fail paths that match both host and device")
		cmd.Flags().Bool("encrypt", false, "Encrypt files on their way to the device")
	}

	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringArrayP("pattern", "p", nil, "Wildcard pattern to match (repeatable)")
	resolveCmd.Flags().String("device", "", "Device to resolve against")
	resolveCmd.Flags().Bool("skip-ambiguity-check", false, "Do not fail paths that match both host and device")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(decryptCmd)
}
