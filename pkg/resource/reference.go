package resource

import (
	"net/url"
	"strings"
)

// NamedReference points at another resource by name and canonical URL
// without carrying its body. It appears as a field of a loaded resource.
type NamedReference struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Kind returns the resource kind encoded in the reference URL, or "" if the
// URL is not a canonical resource URL.
func (r NamedReference) Kind() Kind {
	kind, _ := splitResourceURL(r.URL)
	return kind
}

// ID returns the numeric id encoded in the reference URL.
func (r NamedReference) ID() (int, bool) {
	_, ident := splitResourceURL(r.URL)
	return parseID(ident)
}

// Key returns the key of the referenced resource, addressed by name.
func (r NamedReference) Key() Key {
	return ByName(r.Kind(), r.Name)
}

// APIResource is a reference that carries only a URL (e.g. evolution chains).
type APIResource struct {
	URL string `json:"url"`
}

// Key returns the key of the referenced resource, addressed by id.
func (r APIResource) Key() Key {
	kind, ident := splitResourceURL(r.URL)
	return ParseKey(kind, ident)
}

// splitResourceURL extracts ("pokemon-species", "1") from
// "https://pokeapi.co/api/v2/pokemon-species/1/".
func splitResourceURL(raw string) (Kind, string) {
	if raw == "" {
		return "", ""
	}
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	return Kind(parts[len(parts)-2]), parts[len(parts)-1]
}
