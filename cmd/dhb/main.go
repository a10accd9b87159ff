package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dhb-go/internal/app"
	"dhb-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a DHBApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Backup", "Validate").
func newApp(operation string) (*app.DHBApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewDHBApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "dhb",
	Short: "Disk hog backup: content-addressed directory snapshots",
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
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])
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
		fmt.Printf("Host ID:     %s\n", cfg.HostID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Source Dir:  %s\n", cfg.SourceDir)
		fmt.Printf("Backup Root: %s\n", cfg.BackupRoot)
		fmt.Printf("Max Space:   %d GB\n", cfg.MaxSpaceGB)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a new backup set",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		dest, _ := cmd.Flags().GetString("dest")
		maxSpaceGB, _ := cmd.Flags().GetInt64("max-space")
		verify, _ := cmd.Flags().GetBool("verify")

		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		if source != "" {
			source, err = filepath.Abs(source)
			if err != nil {
				return fmt.Errorf("resolving source path: %w", err)
			}
		}
		if dest != "" {
			dest, err = filepath.Abs(dest)
			if err != nil {
				return fmt.Errorf("resolving destination path: %w", err)
			}
		}

		name, err := a.Backup(source, dest, maxSpaceGB*1024*1024*1024, verify)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup successful: created set %s\n", name)
		return nil
	},
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate existing backup sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("backup-root")

		a, err := newApp("Validate")
		if err != nil {
			return err
		}
		defer a.Close()

		issues, err := a.Validate(root)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if len(issues) == 0 {
			fmt.Println("All backups are valid!")
			return nil
		}

		fmt.Printf("Found %d issue(s):\n", len(issues))
		for _, issue := range issues {
			fmt.Printf("%s: %s\n", issue.Path(), issue.Kind)
		}
		os.Exit(1)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backup sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("backup-root")

		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.List(root)
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No backup sets found.")
			return nil
		}

		fmt.Println("Available backups:")
		for _, s := range summaries {
			fmt.Printf("%s  %s  %d file(s)  %d bytes\n",
				s.Name,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				s.FileCount,
				s.TotalSizeBytes,
			)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if run.FinishedAt.Valid {
				d := run.FinishedAt.Time.Sub(run.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			snapshot := ""
			if run.SnapshotName.Valid {
				snapshot = run.SnapshotName.String
			}
			fmt.Printf("#%d  %-10s  %s  %-8s  %-10s  %s\n",
				run.ID,
				run.Operation,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				duration,
				snapshot,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("source", "s", "", "Source directory to back up (default: config source_dir)")
	backupCmd.Flags().StringP("dest", "d", "", "Backup root directory (default: config backup_root)")
	backupCmd.Flags().Int64P("max-space", "m", 0, "Maximum space to use in GB (default: config max_space_gb; 0 = unlimited)")
	backupCmd.Flags().Bool("verify", false, "Re-checksum the new set after writing it")

	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("backup-root", "b", "", "Backup root directory (default: config backup_root)")

	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("backup-root", "b", "", "Backup root directory (default: config backup_root)")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
