package domain

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

// DefaultMaxAttempts bounds the randomized passes made before the matcher
// falls back to (or gives up in favour of) the exhaustive search.
const DefaultMaxAttempts = 1000

// Messages returned by the matcher. Callers may compare against them.
const (
	MsgTooFewPlayers = "need to have 2 or more players for proper pairing"
	MsgMajorityTag   = "Over half the players have the same tag, pairs cannot be created as a result"
	MsgNoPairing     = "no valid pairing exists for the given tags"
)

// PlayerPair is a directional assignment: Giver buys a gift for Receiver.
// It encodes to JSON as the two-element array [giver, receiver].
type PlayerPair struct {
	Giver    Player
	Receiver Player
}

// MarshalJSON encodes the pair as [giver, receiver].
func (pp PlayerPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Player{pp.Giver, pp.Receiver})
}

// UnmarshalJSON decodes a [giver, receiver] array.
func (pp *PlayerPair) UnmarshalJSON(b []byte) error {
	var raw []Player
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("player pair: want 2 elements, got %d", len(raw))
	}
	pp.Giver, pp.Receiver = raw[0], raw[1]
	return nil
}

// MatchMaker assigns every player exactly one receiver.
//
// The zero value is usable: it draws from the global random source, makes
// DefaultMaxAttempts randomized passes and does not fall back to the
// exhaustive search. Use NewMatchMaker for the production defaults.
type MatchMaker struct {
	// Rand is the random source. Nil means the global math/rand/v2 source.
	Rand *rand.Rand
	// MaxAttempts caps the randomized passes. Values < 1 mean DefaultMaxAttempts.
	MaxAttempts int
	// Exhaustive enables the augmenting-path search once MaxAttempts passes
	// have been abandoned. With it the matcher always terminates with either
	// a pairing or a proof that none exists.
	Exhaustive bool
}

// NewMatchMaker returns a MatchMaker with DefaultMaxAttempts and the
// exhaustive fallback enabled.
func NewMatchMaker() MatchMaker {
	return MatchMaker{MaxAttempts: DefaultMaxAttempts, Exhaustive: true}
}

// ProducePairs runs the default MatchMaker.
func ProducePairs(players []Player) Result[[]PlayerPair] {
	return NewMatchMaker().ProducePairs(players)
}

// ProducePairs builds a derangement over players where no giver shares a tag
// with their receiver. Pairs are returned in the input order of the givers.
//
// Fewer than two players, or a tag carried by more players than lack it,
// fails before any assignment is attempted. The majority check is a cheap
// necessary condition only; real infeasibility is detected by the
// exhaustive fallback.
func (m MatchMaker) ProducePairs(players []Player) Result[[]PlayerPair] {
	switch len(players) {
	case 0:
		return Success([]PlayerPair{})
	case 1:
		return Fail[[]PlayerPair](ErrValidation, MsgTooFewPlayers)
	}

	if majorityTag(players) {
		return Fail[[]PlayerPair](ErrInfeasible, MsgMajorityTag)
	}

	attempts := m.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	for range attempts {
		if pairs, ok := m.randomPass(players); ok {
			return Success(pairs)
		}
	}

	if !m.Exhaustive {
		return Failure[[]PlayerPair](ErrExhausted)
	}
	if pairs, ok := m.augmentingSearch(players); ok {
		return Success(pairs)
	}
	return Fail[[]PlayerPair](ErrInfeasible, MsgNoPairing)
}

// majorityTag reports whether any tag is carried by more players than lack it.
func majorityTag(players []Player) bool {
	counts := make(map[string]int)
	for _, p := range players {
		for _, t := range p.Tags.tags {
			counts[t]++
		}
	}
	for _, count := range counts {
		if len(players)-count < count {
			return true
		}
	}
	return false
}

func (m MatchMaker) intN(n int) int {
	if m.Rand != nil {
		return m.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// randomPass walks players in order and gives each one a uniformly chosen
// eligible receiver. It abandons the pass as soon as some player has no
// eligible receiver left.
func (m MatchMaker) randomPass(players []Player) ([]PlayerPair, bool) {
	taken := make([]bool, len(players))
	pairs := make([]PlayerPair, 0, len(players))
	eligible := make([]int, 0, len(players))

	for _, p := range players {
		eligible = eligible[:0]
		for j, x := range players {
			if !taken[j] && p.CanGiftTo(x) {
				eligible = append(eligible, j)
			}
		}
		if len(eligible) == 0 {
			return nil, false
		}
		j := eligible[m.intN(len(eligible))]
		taken[j] = true
		pairs = append(pairs, PlayerPair{Giver: p, Receiver: players[j]})
	}
	return pairs, true
}

// augmentingSearch finds a perfect matching in the giver→receiver
// compatibility graph with Kuhn's algorithm. Adjacency lists are shuffled so
// repeated runs do not always yield the same pairing.
func (m MatchMaker) augmentingSearch(players []Player) ([]PlayerPair, bool) {
	n := len(players)
	adj := make([][]int, n)
	for i, p := range players {
		for j, x := range players {
			if p.CanGiftTo(x) {
				adj[i] = append(adj[i], j)
			}
		}
		if len(adj[i]) == 0 {
			return nil, false
		}
		for k := len(adj[i]) - 1; k > 0; k-- {
			r := m.intN(k + 1)
			adj[i][k], adj[i][r] = adj[i][r], adj[i][k]
		}
	}

	giverOf := make([]int, n) // receiver index -> giver index
	for j := range giverOf {
		giverOf[j] = -1
	}

	var try func(i int, seen []bool) bool
	try = func(i int, seen []bool) bool {
		for _, j := range adj[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if giverOf[j] < 0 || try(giverOf[j], seen) {
				giverOf[j] = i
				return true
			}
		}
		return false
	}

	for i := range players {
		if !try(i, make([]bool, n)) {
			return nil, false
		}
	}

	receiverOf := make([]int, n)
	for j, i := range giverOf {
		receiverOf[i] = j
	}
	pairs := make([]PlayerPair, n)
	for i, p := range players {
		pairs[i] = PlayerPair{Giver: p, Receiver: players[receiverOf[i]]}
	}
	return pairs, true
}

// ValidatePairs checks that pairs is a complete derangement over players:
// every player gives once and receives once, nobody gives to themselves and
// no pair shares a tag. An empty pairs slice is valid.
func ValidatePairs(players []Player, pairs []PlayerPair) error {
	if len(pairs) == 0 {
		return nil
	}
	if len(pairs) != len(players) {
		return fmt.Errorf("%w: %d pairs for %d players", ErrValidation, len(pairs), len(players))
	}
	known := make(map[string]bool, len(players))
	for _, p := range players {
		known[p.Name] = true
	}
	gave := make(map[string]bool, len(pairs))
	got := make(map[string]bool, len(pairs))
	for _, pp := range pairs {
		g, r := pp.Giver.Name, pp.Receiver.Name
		switch {
		case !known[g] || !known[r]:
			return fmt.Errorf("%w: pair %s -> %s names an unknown player", ErrValidation, g, r)
		case g == r:
			return fmt.Errorf("%w: %s is paired with themselves", ErrValidation, g)
		case pp.Giver.Tags.Intersects(pp.Receiver.Tags):
			return fmt.Errorf("%w: %s and %s share a tag", ErrValidation, g, r)
		case gave[g]:
			return fmt.Errorf("%w: %s gives more than once", ErrValidation, g)
		case got[r]:
			return fmt.Errorf("%w: %s receives more than once", ErrValidation, r)
		}
		gave[g], got[r] = true, true
	}
	return nil
}
