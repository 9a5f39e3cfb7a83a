package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name     string
		template string
		args     []any
		want     string
	}{
		{
			name:     "no args",
			template: "new",
			args:     []any{},
			want:     "new",
		},
		{
			name:     "single int",
			template: "entry",
			args:     []any{42},
			want:     joinWithSeparator("entry", "42"),
		},
		{
			name:     "multiple basic types",
			template: "entry",
			args:     []any{1, "hello", true, 3.14},
			want:     joinWithSeparator("entry", "1", "hello", "true", "3.14"),
		},
		{
			name:     "string with special chars",
			template: "complete",
			args:     []any{"b i h"},
			want:     joinWithSeparator("complete", "b i h"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.template, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeySerializer_Namespace(t *testing.T) {
	serializer := NewKeySerializer("v1")

	got := serializer.SerializeKey("dj", "username", "alice")
	want := joinWithSeparator("v1", "dj", "username", "alice")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestKeySerializer_UUIDUsesStringForm(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

	got := serializer.SerializeKey("entry", id)
	want := joinWithSeparator("entry", "7d444840-9dc0-11d1-b245-5ffdce74fad2")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}

	var nilID *uuid.UUID
	if got := serializer.SerializeKey("entry", nilID); got != joinWithSeparator("entry", "nil") {
		t.Errorf("expected nil pointer to serialize as nil, got %v", got)
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	var nilSlice []string
	var nilMap map[string]int

	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "nil interface", args: []any{nil}, want: joinWithSeparator("t", "nil")},
		{name: "nil slice", args: []any{nilSlice}, want: joinWithSeparator("t", "slice:nil")},
		{name: "nil map", args: []any{nilMap}, want: joinWithSeparator("t", "map:nil")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serializer.SerializeKey("t", tt.args...); got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Collections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	got := serializer.SerializeKey("t", []string{"a", "b"})
	if want := joinWithSeparator("t", "slice[2]:{a,b}"); got != want {
		t.Errorf("slice: got %v, want %v", got, want)
	}

	got = serializer.SerializeKey("t", [2]int{1, 2})
	if want := joinWithSeparator("t", "array[2]:{1,2}"); got != want {
		t.Errorf("array: got %v, want %v", got, want)
	}

	got = serializer.SerializeKey("t", map[string]int{"z": 1, "a": 2})
	if want := joinWithSeparator("t", "map[2]:{a=2,z=1}"); got != want {
		t.Errorf("map: got %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Pointers(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	value := "alice"

	got := serializer.SerializeKey("t", &value)
	if want := joinWithSeparator("t", "alice"); got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewKeySerializer("v1")
	args := []any{"album", map[string]bool{"new": true, "old": false}, []int{3, 1}}

	first := serializer.SerializeKey("view", args...)
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("view", args...); got != first {
			t.Fatalf("unstable key: %v vs %v", got, first)
		}
	}
}

func TestDefaultKeySerializer_JSONFallback(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type window struct {
		Limit int    `json:"limit"`
		Sort  string `json:"sort"`
	}

	got := serializer.SerializeKey("t", window{Limit: 36, Sort: "artist"})
	want := joinWithSeparator("t", `json:{"limit":36,"sort":"artist"}`)
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}
