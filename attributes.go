package pulseagent

import (
	"reflect"
	"unicode"
)

// IsConformingName reports whether name is safe to transmit as a top-level
// document field: non-empty, starting with a letter, and made only of
// letters, digits and underscores.
func IsConformingName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// ScrubNonConforming removes every top-level field whose name does not
// conform, and every field whose value is structured (object, array,
// struct), regardless of name. Scalars and nil survive.
func ScrubNonConforming(doc *Document) {
	if doc == nil {
		return
	}
	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)
		if !IsConformingName(k) || isStructured(v) {
			doc.Delete(k)
		}
	}
}

// isStructured reports whether v is a container value.
func isStructured(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(*Document); ok {
		return true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		// not representable as JSON scalars either
		return true
	default:
		return false
	}
}
