// Command `podcfg` is the administrator CLI for the podcfgd daemon.
//
// Usage:
//
//	podcfg show                  - Show the pod settings, marking overridden keys
//	podcfg set <key=value>...    - Change one or more settings
//	podcfg reset                 - Drop every override and go back to the defaults
//	podcfg status                - Show daemon activity
//	podcfg defaults              - Show the compiled-in defaults
//	podcfg render [--settings f] - Print the Prosody configuration for stored settings
//	podcfg check <file>...       - Check settings files without contacting the daemon
//
// Examples:
//
//	podcfg set domain=example.org federation_enabled=true
//	podcfg set message_archive_retention=P1Y file_size_limit=20MB
//	podcfg render --settings ./settings.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lc/podcfg/internal/buildinfo"
	"github.com/lc/podcfg/internal/config"
	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/pkg/client"
)

func main() {
	var cfgPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "podcfg",
		Short: "Pod settings CLI",
		Long: `podcfg changes the settings of an XMPP pod. The podcfgd daemon turns the
settings into the Prosody configuration and reloads the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			provider := config.New()
			if cfgPath == "" {
				cfgPath = os.Getenv("PODCFG_CONFIG")
			}
			if cfgPath != "" {
				provider = config.NewWithPath(filesys.OS(), cfgPath)
			}
			var err error
			if cfg, err = provider.Load(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "daemon configuration file (default "+config.DefaultPath+")")

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- show command ----
	showCmd := &cobra.Command{
		Use:     "show",
		Short:   "Show the pod settings",
		Long:    `Show every pod setting as the daemon applies it. Overridden settings are highlighted.`,
		Example: "podcfg show",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			res, err := client.New(cfg.Socket.Path).Settings(ctx)
			if err != nil {
				return report(err)
			}
			color.New(color.Bold).Printf("POD SETTINGS (revision %s):\n", res.Revision)
			printSettings(settingRows(res.Settings, res.Overrides))
			return nil
		},
	}

	// ---- set command ----
	setCmd := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change pod settings",
		Long: `Change one or more pod settings in a single update. Either every value is
accepted and applied, or nothing changes.

Durations use ISO-8601 ("P1Y", "P30D", "PT12H"); retentions also accept
"infinite". Sizes and rates use SI units ("10MB", "50kb/s").`,
		Example: "podcfg set domain=example.org mfa_required=false",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			patch, err := parseAssignments(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			res, err := client.New(cfg.Socket.Path).Update(ctx, patch)
			if err != nil {
				return report(err)
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ Settings applied, revision ")
			color.New(color.FgHiGreen, color.Bold).Println(res.Revision)
			return nil
		},
	}

	// ---- reset command ----
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every override",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			res, err := client.New(cfg.Socket.Path).Reset(ctx)
			if err != nil {
				return report(err)
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ Defaults restored, revision ")
			color.New(color.FgHiGreen, color.Bold).Println(res.Revision)
			return nil
		},
	}

	// ---- status command ----
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon activity",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			st, err := client.New(cfg.Socket.Path).Status(ctx)
			if err != nil {
				return report(err)
			}
			fmt.Printf("revision:   %s\n", st.Revision)
			fmt.Printf("updated:    %s\n", st.UpdatedAt.Format(time.RFC3339))
			fmt.Printf("uptime:     %s\n", st.Uptime.Truncate(time.Second))
			fmt.Printf("applies:    %d\n", st.Applies)
			fmt.Printf("reloads:    %d\n", st.Reloads)
			fmt.Printf("failures:   %d\n", st.Failures)
			fmt.Printf("daemon:     %s (%s)\n", st.Version, st.Commit)
			if st.LastError != "" {
				color.New(color.FgRed).Printf("last error: %s\n", st.LastError)
			}
			return nil
		},
	}

	// ---- defaults command ----
	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show the compiled-in defaults",
		Args:  cobra.NoArgs,
		// no daemon config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(_ *cobra.Command, _ []string) {
			color.New(color.Bold).Println("DEFAULT POD SETTINGS:")
			printSettings(settingRows(podconfig.Defaults(), podconfig.Overrides{}))
		},
	}

	// ---- render command ----
	var settingsPath string
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Print the Prosody configuration for the stored settings",
		Long: `Render the Prosody configuration from a settings file without contacting
the daemon. The output may contain component secrets.`,
		Example: "podcfg render --settings /var/lib/podcfg/settings.yaml",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if settingsPath == "" {
				settingsPath = cfg.Settings.Path
			}
			text, err := render(cfg, settingsPath)
			cfg.Pod.Wipe()
			if err != nil {
				return report(err)
			}
			_, err = os.Stdout.Write(text)
			return err
		},
	}
	renderCmd.Flags().StringVar(&settingsPath, "settings", "", "settings file (default from daemon configuration)")

	// ---- check command ----
	checkCmd := &cobra.Command{
		Use:     "check <file>...",
		Short:   "Check settings files",
		Example: "podcfg check staging.yaml production.yaml",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, r := range checkFiles(cmd.Context(), cfg, args) {
				if r.Err == nil {
					color.New(color.FgGreen).Print("OK   ")
					fmt.Println(r.Path)
					continue
				}
				failed++
				color.New(color.FgHiRed, color.Bold).Print("FAIL ")
				fmt.Println(r.Path)
				for _, line := range describe(r.Err) {
					color.New(color.FgYellow).Printf("     %s\n", line)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files rejected", failed, len(args))
			}
			return nil
		},
	}

	root.AddCommand(showCmd, setCmd, resetCmd, statusCmd, defaultsCmd, renderCmd, checkCmd, versionCmd)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func printSettings(rows []settingRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Setting", "Value", "Overridden"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgGreenColor},
		tablewriter.Colors{tablewriter.FgYellowColor},
	)
	for _, r := range rows {
		overridden := ""
		if r.Overridden {
			overridden = "yes"
		}
		table.Append([]string{r.Key, r.Value, overridden})
	}
	table.Render()
}

// report prints the rejected fields of err one per line and returns err.
func report(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		for _, f := range apiErr.Response.Fields {
			color.New(color.FgYellow).Printf("  %s: %s\n", f.Field, f.Error)
		}
		return err
	}
	for _, fe := range podconfig.FieldErrors(err) {
		color.New(color.FgYellow).Printf("  %s\n", fe.Error())
	}
	return err
}
