// Package domain contains the core types of the Secret Santa service: the
// Workshop aggregate, its players, the pairing engine and the Result type
// used to report failure. Everything here is pure: no I/O, no shared state,
// and every update returns a new value.
package domain

import "slices"

// Messages returned by Workshop lookups.
const (
	MsgPlayerNotFound = "Player not found in workshop"
	MsgNotInGame      = "player is not in the game"
	MsgNotPaired      = "giver does not exist or has not been paired yet"
)

// Workshop is the aggregate root: a named gift exchange with a spending
// limit, its players and the current pairing.
//
// Pairs is either empty or a derangement over Players. It is replaced
// wholesale on every successful match. AddPlayers leaves it stale until the
// next match; RemovePlayers clears it once anyone leaves.
//
// Version is the storage revision the value was loaded at. Zero means the
// workshop has never been saved.
type Workshop struct {
	ID          Identifier   `json:"id"`
	Name        string       `json:"name"`
	DollarLimit float64      `json:"dollarLimit"`
	Players     []Player     `json:"players"`
	Pairs       []PlayerPair `json:"pairs"`
	Version     int64        `json:"-"`
}

// PairLookup is the answer to "who am I buying for?". Receiver is nil until
// the workshop has been matched.
type PairLookup struct {
	Giver    Player  `json:"giver"`
	Receiver *Player `json:"receiver,omitempty"`
}

// NewWorkshop creates a workshop with a fresh identifier and no pairs.
// Players are copied as given; use AddPlayers to drop duplicate names.
func NewWorkshop(name string, dollarLimit float64, players []Player) Workshop {
	return Workshop{
		ID:          NewIdentifier(),
		Name:        name,
		DollarLimit: dollarLimit,
		Players:     clonePlayers(players),
		Pairs:       []PlayerPair{},
	}
}

// Player returns the player called name.
func (w Workshop) Player(name string) (Player, bool) {
	i := w.playerIndex(name)
	if i < 0 {
		return Player{}, false
	}
	return w.Players[i], true
}

// IsMatched reports whether the workshop holds a pairing.
func (w Workshop) IsMatched() bool { return len(w.Pairs) > 0 }

// AddPlayers appends every player whose name is not already taken. Later
// duplicates, including duplicates within players, are dropped silently.
func (w Workshop) AddPlayers(players ...Player) Workshop {
	seen := make(map[string]bool, len(w.Players)+len(players))
	for _, p := range w.Players {
		seen[p.Name] = true
	}
	out := clonePlayers(w.Players)
	for _, p := range players {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	w.Players = out
	return w
}

// RemovePlayers keeps only the players whose name appears in players and
// drops everyone else. Callers wanting "everyone except these" must pass
// the complement. If anyone was dropped the pairing is cleared, since it
// would name players who are no longer in the game.
func (w Workshop) RemovePlayers(players ...Player) Workshop {
	keep := make(map[string]bool, len(players))
	for _, p := range players {
		keep[p.Name] = true
	}
	out := make([]Player, 0, len(w.Players))
	for _, p := range w.Players {
		if keep[p.Name] {
			out = append(out, p)
		}
	}
	if len(out) < len(w.Players) {
		w.Pairs = []PlayerPair{}
	}
	w.Players = out
	return w
}

// MatchPlayers pairs the players with the default MatchMaker. If matching
// fails the workshop is returned unchanged; use MatchPlayersWith to see why.
func (w Workshop) MatchPlayers() Workshop {
	if r := w.MatchPlayersWith(NewMatchMaker()); r.IsSuccess() {
		return r.Value()
	}
	return w
}

// MatchPlayersWith pairs the players with mm and returns the matched
// workshop, or mm's error.
func (w Workshop) MatchPlayersWith(mm MatchMaker) Result[Workshop] {
	return Map(mm.ProducePairs(w.Players), func(pairs []PlayerPair) Workshop {
		w.Pairs = pairs
		return w
	})
}

// UpdatePlayerWishlist replaces the wishlist of the player called name.
// The player's copies inside Pairs are updated too so a giver always sees
// their receiver's current list.
func (w Workshop) UpdatePlayerWishlist(name string, wishlist []WishlistItem) Result[Workshop] {
	i := w.playerIndex(name)
	if i < 0 {
		return Fail[Workshop](ErrNotFound, MsgPlayerNotFound)
	}
	updated := w.Players[i].WithWishlist(wishlist)

	players := clonePlayers(w.Players)
	players[i] = updated
	w.Players = players

	if len(w.Pairs) > 0 {
		pairs := slices.Clone(w.Pairs)
		for k := range pairs {
			if pairs[k].Giver.Name == name {
				pairs[k].Giver = updated
			}
			if pairs[k].Receiver.Name == name {
				pairs[k].Receiver = updated
			}
		}
		w.Pairs = pairs
	}
	return Success(w)
}

// GetPlayerPair returns the player called name and, once the workshop has
// been matched, the player they give to.
func (w Workshop) GetPlayerPair(name string) Result[PairLookup] {
	if len(w.Pairs) == 0 {
		p, ok := w.Player(name)
		if !ok {
			return Fail[PairLookup](ErrNotFound, MsgNotInGame)
		}
		return Success(PairLookup{Giver: p})
	}
	for _, pp := range w.Pairs {
		if pp.Giver.Name == name {
			r := pp.Receiver
			return Success(PairLookup{Giver: pp.Giver, Receiver: &r})
		}
	}
	return Fail[PairLookup](ErrNotFound, MsgNotPaired)
}

func (w Workshop) playerIndex(name string) int {
	return slices.IndexFunc(w.Players, func(p Player) bool { return p.Name == name })
}

// clonePlayers returns a non-nil copy of players.
func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players), len(players)+1)
	copy(out, players)
	return out
}
