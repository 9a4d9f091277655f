package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pkordes/secret-santa/internal/domain"
)

// Roster is the YAML document read by the pair command.
//
//	name: Office Party
//	dollarLimit: 25
//	players:
//	  - nickname: alice
//	    tags: [family]
//	    wishlist:
//	      - name: socks
type Roster struct {
	Name        string          `yaml:"name"`
	DollarLimit float64         `yaml:"dollarLimit"`
	Players     []domain.Player `yaml:"players"`
}

// pairLine is one drawn pair in JSON output.
type pairLine struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
}

// PairOptions holds flags for the pair command.
type PairOptions struct {
	Seed        uint64
	Format      string
	MaxAttempts int
	Exhaustive  bool
}

// NewPairCommand creates the pair command, which draws pairs for a roster
// file without running the server or touching a store.
func NewPairCommand(_ *RootOptions) *cobra.Command {
	opts := &PairOptions{}

	cmd := &cobra.Command{
		Use:   "pair <roster.yaml>",
		Short: "Draw Secret Santa pairs for a roster file",
		Long: `Read a YAML roster and print who gives to whom. Players sharing a tag
never draw each other. Pass --seed to make the draw reproducible.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkFormat(opts.Format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
			}
			return runPair(cmd.OutOrStdout(), args[0], opts, rng)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for a reproducible draw")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", domain.DefaultMaxAttempts, "randomized passes before the exhaustive search")
	cmd.Flags().BoolVar(&opts.Exhaustive, "exhaustive", true, "fall back to an exhaustive search when random passes fail")

	return cmd
}

func runPair(out io.Writer, path string, opts *PairOptions, rng *rand.Rand) error {
	roster, err := readRoster(path)
	if err != nil {
		return err
	}

	mm := domain.MatchMaker{Rand: rng, MaxAttempts: opts.MaxAttempts, Exhaustive: opts.Exhaustive}
	w := domain.NewWorkshop(roster.Name, roster.DollarLimit, nil).AddPlayers(roster.Players...)

	return domain.Match(w.MatchPlayersWith(mm),
		func(w domain.Workshop) error {
			if err := domain.ValidatePairs(w.Players, w.Pairs); err != nil {
				return fmt.Errorf("invalid pairing: %w", err)
			}
			return writePairs(out, opts.Format, w)
		},
		func(err error) error { return err },
	)
}

func readRoster(path string) (Roster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Roster{}, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return r, nil
}

func writePairs(out io.Writer, format string, w domain.Workshop) error {
	lines := make([]pairLine, len(w.Pairs))
	for i, pp := range w.Pairs {
		lines[i] = pairLine{Giver: pp.Giver.Name, Receiver: pp.Receiver.Name}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(out, "%s -> %s\n", l.Giver, l.Receiver); err != nil {
			return err
		}
	}
	return nil
}
