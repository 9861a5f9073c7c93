package resource

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidKey is returned when a Key does not address a resource.
var ErrInvalidKey = errors.New("invalid resource key")

// Key addresses exactly one resource: a kind plus either a positive numeric
// id or a case-sensitive name. Exactly one of ID and Name is set.
//
// Key is comparable and is used as the identity of a cached resource.
type Key struct {
	Kind Kind
	ID   int
	Name string
}

// ByID returns the key for a resource addressed by numeric id.
func ByID(kind Kind, id int) Key {
	return Key{Kind: kind, ID: id}
}

// ByName returns the key for a resource addressed by name. Names that are
// entirely decimal digits are normalized to an id, so ByName(k, "25") and
// ByID(k, 25) are the same key.
func ByName(kind Kind, name string) Key {
	return ParseKey(kind, name)
}

// ParseKey builds a key from an identifier that is either a decimal id or a
// name. Numeric identifiers compare numerically ("001" equals 1); names are
// kept exactly as given.
func ParseKey(kind Kind, idOrName string) Key {
	if id, ok := parseID(idOrName); ok {
		return Key{Kind: kind, ID: id}
	}
	return Key{Kind: kind, Name: idOrName}
}

// Validate reports whether the key addresses a resource.
func (k Key) Validate() error {
	if k.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidKey)
	}
	if k.Name == "" && k.ID <= 0 {
		return fmt.Errorf("%w: %s needs a positive id or a name (got id %d)", ErrInvalidKey, k.Kind, k.ID)
	}
	if k.Name != "" && k.ID != 0 {
		return fmt.Errorf("%w: %s has both id %d and name %q", ErrInvalidKey, k.Kind, k.ID, k.Name)
	}
	return nil
}

// Identifier returns the id or name as it appears in the URL path.
func (k Key) Identifier() string {
	if k.Name != "" {
		return k.Name
	}
	return strconv.Itoa(k.ID)
}

// Path returns the canonical path of the resource relative to the API root,
// e.g. "pokemon-species/1/".
func (k Key) Path() string {
	return string(k.Kind) + "/" + k.Identifier() + "/"
}

// String returns "kind/identifier".
func (k Key) String() string {
	return string(k.Kind) + "/" + k.Identifier()
}

func parseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
