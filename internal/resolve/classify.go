package resolve

import (
	"regexp"
	"strconv"
)

// Kind is the syntactic class of a reference.
type Kind int

const (
	Alias Kind = iota
	Canonical
	CompoundKey
)

func (k Kind) String() string {
	switch k {
	case Canonical:
		return "canonical"
	case CompoundKey:
		return "compound_key"
	default:
		return "alias"
	}
}

// Reference is a classified caller-supplied string.
type Reference struct {
	Raw     string
	Kind    Kind
	TeamKey string
	Number  uint64
}

var (
	canonicalRe   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	compoundKeyRe = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)-([0-9]+)$`)
)

// Classify sorts a reference into canonical ID, compound key or alias. It
// never performs I/O.
func Classify(ref string) Reference {
	if canonicalRe.MatchString(ref) {
		return Reference{Raw: ref, Kind: Canonical}
	}
	if m := compoundKeyRe.FindStringSubmatch(ref); m != nil {
		n, err := strconv.ParseUint(m[2], 10, 64)
		if err == nil {
			return Reference{Raw: ref, Kind: CompoundKey, TeamKey: m[1], Number: n}
		}
		// Out of range numbers cannot name a real issue; fall through to alias.
	}
	return Reference{Raw: ref, Kind: Alias}
}

// IsCanonical reports whether ref has the shape of a canonical ID.
func IsCanonical(ref string) bool {
	return canonicalRe.MatchString(ref)
}
