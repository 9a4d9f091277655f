package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IdentifierWords is the number of words in a generated workshop code.
const IdentifierWords = 5

// identifierPattern accepts word tokens joined by single hyphens.
var identifierPattern = regexp.MustCompile(`^(\w-?)+\w$`)

var lower = cases.Lower(language.Und)

// Identifier is the human-shareable workshop code, e.g. "frost-sleigh-cocoa-elf-noel".
// The zero value is the empty (invalid) identifier.
type Identifier struct {
	value string
}

// ParseIdentifier validates s against the code format. It does not check
// that s could have come from any particular vocabulary.
func ParseIdentifier(s string) Result[Identifier] {
	if !identifierPattern.MatchString(s) {
		return Fail[Identifier](ErrValidation, fmt.Sprintf("could not parse %q as a workshop code", s))
	}
	return Success(Identifier{value: s})
}

// MustParseIdentifier is ParseIdentifier for literals in tests and fixtures.
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s).Unwrap()
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identifier) String() string { return i.value }

// IsZero reports whether i is the empty identifier.
func (i Identifier) IsZero() bool { return i.value == "" }

// MarshalText implements encoding.TextMarshaler.
func (i Identifier) MarshalText() ([]byte, error) {
	return []byte(i.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects malformed codes.
func (i *Identifier) UnmarshalText(b []byte) error {
	id, err := ParseIdentifier(string(b)).Unwrap()
	if err != nil {
		return err
	}
	*i = id
	return nil
}

// Vocabulary is the word list identifiers are drawn from.
type Vocabulary []string

// Identifier draws n words (at least one) from v using rng and joins them
// with hyphens, lower-cased. A nil rng uses the global source.
func (v Vocabulary) Identifier(n int, rng *rand.Rand) Identifier {
	if n < 1 {
		n = 1
	}
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	words := make([]string, n)
	for i := range words {
		words[i] = v[intN(len(v))]
	}
	return Identifier{value: lower.String(strings.Join(words, "-"))}
}

// NewIdentifier generates an IdentifierWords-long code from WinterWords.
func NewIdentifier() Identifier {
	return WinterWords.Identifier(IdentifierWords, nil)
}

// WinterWords is the default vocabulary.
var WinterWords = Vocabulary{
	"winter", "snow", "snowfall", "snowflake", "snowstorm", "snowman",
	"snowbound", "blizzard", "frost", "frostbite", "frosty", "icy", "ice",
	"icicle", "sleet", "hail", "chill", "cold", "freezing", "glacial",
	"arctic", "polar", "solstice", "evergreen", "pine", "fir", "spruce",
	"holly", "mistletoe", "wreath", "garland", "ornament", "tinsel",
	"stocking", "chimney", "hearth", "fireplace", "sleigh", "sled",
	"sledding", "reindeer", "elf", "elves", "Santa", "Kringle", "Northpole",
	"workshop", "present", "gift", "wrapping", "festive", "holiday", "carol",
	"caroling", "bells", "jingle", "yuletide", "noel", "nativity", "manger",
	"candle", "lantern", "skating", "snowball", "wintertime", "cozy", "cocoa",
	"gingerbread", "peppermint", "candycane", "chestnuts", "nutcracker",
	"pinecone", "skiing", "snowboard", "parka", "scarf", "mittens", "gloves",
	"boots", "firewood", "eggnog", "cranberry", "lights", "twinkle",
	"frosted", "wonderland", "midwinter", "sugarplum", "yulelog", "treetop",
	"seasonal", "cookies", "cracker", "stockings", "holidays", "chimneys",
	"sleds",
}
