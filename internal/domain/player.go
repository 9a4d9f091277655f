package domain

import (
	"encoding/json"
	"slices"
)

// TagSet is an immutable set of exclusion tags. Members are kept sorted and
// unique, so two sets holding the same tags compare equal regardless of the
// order they were built in. The zero value is the empty set.
//
// On the wire a TagSet is a JSON list; decoding drops duplicates.
type TagSet struct {
	tags []string
}

// NewTagSet builds a set from tags, dropping duplicates.
func NewTagSet(tags ...string) TagSet {
	if len(tags) == 0 {
		return TagSet{}
	}
	s := slices.Clone(tags)
	slices.Sort(s)
	return TagSet{tags: slices.Compact(s)}
}

// Len returns the number of tags.
func (s TagSet) Len() int { return len(s.tags) }

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := slices.BinarySearch(s.tags, tag)
	return ok
}

// Intersects reports whether s and o share at least one tag.
func (s TagSet) Intersects(o TagSet) bool {
	i, j := 0, 0
	for i < len(s.tags) && j < len(o.tags) {
		switch {
		case s.tags[i] == o.tags[j]:
			return true
		case s.tags[i] < o.tags[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// With returns a set that also contains tag.
func (s TagSet) With(tag string) TagSet {
	if s.Has(tag) {
		return s
	}
	return NewTagSet(append(slices.Clone(s.tags), tag)...)
}

// Without returns a set that does not contain tag.
func (s TagSet) Without(tag string) TagSet {
	if !s.Has(tag) {
		return s
	}
	out := slices.DeleteFunc(slices.Clone(s.tags), func(t string) bool { return t == tag })
	return NewTagSet(out...)
}

// Slice returns the tags in sorted order. The caller owns the returned slice.
func (s TagSet) Slice() []string {
	if len(s.tags) == 0 {
		return []string{}
	}
	return slices.Clone(s.tags)
}

// Equal reports whether s and o contain the same tags.
func (s TagSet) Equal(o TagSet) bool { return slices.Equal(s.tags, o.tags) }

// MarshalJSON encodes the set as a sorted JSON list.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a JSON list, dropping duplicates. null decodes to
// the empty set.
func (s *TagSet) UnmarshalJSON(b []byte) error {
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// MarshalYAML encodes the set as a sorted YAML sequence.
func (s TagSet) MarshalYAML() (any, error) {
	return s.Slice(), nil
}

// UnmarshalYAML decodes a YAML sequence, dropping duplicates.
func (s *TagSet) UnmarshalYAML(unmarshal func(any) error) error {
	var tags []string
	if err := unmarshal(&tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// WishlistItem is a single gift idea. URL is optional.
type WishlistItem struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Player is a participant in the exchange. Name identifies the player within
// a workshop and is case-sensitive. Players are values: every update below
// returns a new Player and leaves the receiver untouched.
type Player struct {
	Name     string         `json:"nickname" yaml:"nickname"`
	Tags     TagSet         `json:"tags" yaml:"tags"`
	Wishlist []WishlistItem `json:"wishlist" yaml:"wishlist"`
}

// NewPlayer creates a player with the given tags and an empty wishlist.
func NewPlayer(name string, tags ...string) Player {
	return Player{
		Name:     name,
		Tags:     NewTagSet(tags...),
		Wishlist: []WishlistItem{},
	}
}

// AddTag returns p with tag added.
func (p Player) AddTag(tag string) Player {
	p.Tags = p.Tags.With(tag)
	return p
}

// RemoveTag returns p without tag.
func (p Player) RemoveTag(tag string) Player {
	p.Tags = p.Tags.Without(tag)
	return p
}

// AddItem returns p with item appended to the wishlist.
func (p Player) AddItem(item WishlistItem) Player {
	w := make([]WishlistItem, 0, len(p.Wishlist)+1)
	p.Wishlist = append(append(w, p.Wishlist...), item)
	return p
}

// RemoveItem returns p without the first wishlist entry equal to item.
func (p Player) RemoveItem(item WishlistItem) Player {
	i := slices.Index(p.Wishlist, item)
	if i < 0 {
		return p
	}
	p.Wishlist = slices.Delete(slices.Clone(p.Wishlist), i, i+1)
	return p
}

// WithWishlist returns p with its wishlist replaced by a copy of items.
func (p Player) WithWishlist(items []WishlistItem) Player {
	w := make([]WishlistItem, len(items))
	copy(w, items)
	p.Wishlist = w
	return p
}

// CanGiftTo reports whether p may be assigned to buy for r: they must be
// different players and share no tag.
func (p Player) CanGiftTo(r Player) bool {
	return p.Name != r.Name && !p.Tags.Intersects(r.Tags)
}
