package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command. It applies or rolls back
// the embedded goose migrations for the configured SQL store.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the SQL schema of the configured store",
		Long:      "Apply (up, the default), roll back one version (down) or list (status) schema migrations for STORE=postgres or STORE=sqlite.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return rootOpts.bindFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrate(cmd, rootOpts, direction)
		},
	}

	cmd.Flags().String("store", "", "workshop store: postgres or sqlite (overrides STORE)")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *RootOptions, direction string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	provider, closeDB, err := openMigrations(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	switch direction {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "no migrations to apply")
		}
		for _, r := range results {
			fmt.Fprintf(out, "applied %s\n", r.Source.Path)
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		fmt.Fprintf(out, "rolled back %s\n", r.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		for _, s := range statuses {
			fmt.Fprintf(out, "%-8s %s\n", s.State, s.Source.Path)
		}
	}
	return nil
}
