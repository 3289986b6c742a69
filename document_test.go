package pulseagent

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDocument_SetKeepsInsertionOrder(t *testing.T) {
	doc := NewDocument()
	doc.Set("host", "web01")
	doc.Set("appId", "billing")
	doc.Set("host", "web02") // overwrite keeps position

	want := []string{"host", "appId"}
	if got := doc.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got := doc.String("host"); got != "web02" {
		t.Errorf("String(host) = %q, want web02", got)
	}
}

func TestDocument_Delete(t *testing.T) {
	doc := NewDocument()
	doc.Set("a", 1)
	doc.Set("b", 2)
	doc.Set("c", 3)

	doc.Delete("b")
	doc.Delete("missing")

	if got := doc.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Keys() = %v, want [a c]", got)
	}
	if doc.Has("b") {
		t.Error("Has(b) = true after Delete")
	}
	if doc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", doc.Len())
	}
}

func TestDocument_NilValueIsPresent(t *testing.T) {
	doc := NewDocument()
	doc.Set("version", nil)

	if !doc.Has("version") {
		t.Error("Has(version) = false, want true for nil value")
	}
	if got := doc.String("version"); got != "" {
		t.Errorf("String(version) = %q, want empty", got)
	}
}

func TestDocument_String(t *testing.T) {
	doc := NewDocument()
	doc.Set("pid", 42)

	if got := doc.String("pid"); got != "42" {
		t.Errorf("String(pid) = %q, want 42", got)
	}
	if got := doc.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
}

func TestDocument_Clone(t *testing.T) {
	doc := NewDocument()
	doc.Set("host", "web01")

	cp := doc.Clone()
	cp.Set("host", "changed")
	cp.Set("extra", true)

	if doc.String("host") != "web01" {
		t.Errorf("original host = %q, want web01", doc.String("host"))
	}
	if doc.Has("extra") {
		t.Error("original should not see fields added to the clone")
	}
}

func TestDocument_KeysIsCopy(t *testing.T) {
	doc := NewDocument()
	doc.Set("a", 1)

	keys := doc.Keys()
	keys[0] = "mutated"

	if doc.Keys()[0] != "a" {
		t.Error("mutating Keys() result changed the document")
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := NewDocument()
	doc.Set("zeta", "last-alphabetically")
	doc.Set("alpha", 1)
	doc.Set("empty", nil)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"zeta":"last-alphabetically","alpha":1,"empty":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestDocument_MarshalJSON_Empty(t *testing.T) {
	data, err := json.Marshal(NewDocument())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Marshal() = %s, want {}", data)
	}
}

func TestDocument_UnmarshalJSON(t *testing.T) {
	doc := NewDocument()
	if err := json.Unmarshal([]byte(`{"host":"web01","pid":7,"nested":{"a":1},"osName":"linux"}`), doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []string{"host", "pid", "nested", "osName"}
	if got := doc.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got := doc.String("pid"); got != "7" {
		t.Errorf("String(pid) = %q, want 7", got)
	}
	if v, _ := doc.Get("nested"); !isStructured(v) {
		t.Errorf("nested = %T, want a structured value", v)
	}
}

func TestDocument_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"text"`, `42`} {
		doc := NewDocument()
		if err := json.Unmarshal([]byte(input), doc); err == nil {
			t.Errorf("Unmarshal(%s) expected error, got nil", input)
		}
	}
}
