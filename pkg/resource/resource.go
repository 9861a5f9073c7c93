package resource

// Resource is a decoded payload belonging to exactly one Key. A Resource is
// shared between every caller of the same completed fetch and must be
// treated as read-only.
type Resource[T any] struct {
	Key  Key
	URL  string
	Data T
}

// Payload returns Data as an untyped value.
func (r *Resource[T]) Payload() any {
	return r.Data
}

// Page is one slice of a list endpoint.
//
// Count is the total number of items of the listing and is the same on every
// page. Next is empty iff this is the last page.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// IsLast reports whether there is no page after this one.
func (p *Page[T]) IsLast() bool {
	return p.Next == ""
}

// LocalizedName is one entry of a resource's name list.
type LocalizedName struct {
	Name     string         `json:"name"`
	Language NamedReference `json:"language"`
	Official bool           `json:"official,omitempty"`
}

// LanguageTag returns the language of the entry (e.g. "ja", "zh-Hans").
func (n LocalizedName) LanguageTag() string {
	return n.Language.Name
}

// Localizable is implemented by resource shapes that carry a name list.
type Localizable interface {
	LocalizedNames() []LocalizedName
}
