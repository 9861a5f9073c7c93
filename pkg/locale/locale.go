// Package locale resolves display names from a loaded resource's name list.
// It performs no I/O.
package locale

import (
	"reflect"

	"github.com/Sternrassler/pokeapi-client/pkg/resource"
)

// Resolve returns the first entry of v's name list whose language tag equals
// tag exactly. v may be a catalog shape, a pointer to one, or a
// *resource.Resource wrapping one. Values without a name list resolve to
// absent.
func Resolve(v any, tag string) (resource.LocalizedName, bool) {
	names, ok := namesOf(v)
	if !ok {
		return resource.LocalizedName{}, false
	}
	for _, n := range names {
		if n.LanguageTag() == tag {
			return n, true
		}
	}
	return resource.LocalizedName{}, false
}

// ResolveResource is Resolve for a loaded resource.
func ResolveResource[T any](r *resource.Resource[T], tag string) (resource.LocalizedName, bool) {
	if r == nil {
		return resource.LocalizedName{}, false
	}
	return Resolve(r.Data, tag)
}

// DisplayName returns the name of v in tag, or fallback if there is none.
func DisplayName(v any, tag, fallback string) string {
	if n, ok := Resolve(v, tag); ok {
		return n.Name
	}
	return fallback
}

func namesOf(v any) ([]resource.LocalizedName, bool) {
	if v == nil {
		return nil, false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	switch x := v.(type) {
	case resource.Localizable:
		return x.LocalizedNames(), true
	case []resource.LocalizedName:
		return x, true
	case interface{ Payload() any }: // *resource.Resource[T]
		return namesOf(x.Payload())
	}
	return nil, false
}
