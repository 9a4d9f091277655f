// Package cli wires the santa command tree: serve runs the HTTP API,
// migrate manages the SQL schema and pair matches a roster file offline.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pkordes/secret-santa/internal/config"
)

// RootOptions holds state shared by every command.
type RootOptions struct {
	// v collects flag overrides; config.FromViper layers env and file under it.
	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the santa CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "santa",
		Short: "Secret Santa workshop server",
		Long: `Run gift exchanges: create a workshop, add players with tags and
wishlists, and draw pairs so nobody gives to themselves or to anyone sharing
a tag with them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().String("log-level", "", "minimum log level: debug, info, warn, error")
	_ = opts.v.BindPFlag("config_file", cmd.PersistentFlags().Lookup("config"))
	_ = opts.v.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPairCommand(opts))

	return cmd
}

// bindFlags binds cmd's own flags to the viper keys of the same name
// (dashes become underscores). Binding happens when cmd runs so that
// subcommands sharing a flag name do not steal each other's binding.
func (o *RootOptions) bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if bindErr := o.v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); bindErr != nil {
			err = bindErr
		}
	})
	return err
}

// load resolves configuration through the shared viper instance.
func (o *RootOptions) load() (config.Config, error) {
	return config.FromViper(o.v)
}

// newLogger builds the JSON slog logger every command uses.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// checkFormat validates a --format value.
func checkFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
	}
	return nil
}
