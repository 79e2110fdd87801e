package wizard

import (
	"strings"
	"testing"
)

func TestNonEmpty(t *testing.T) {
	accept := NonEmpty("empty")

	v, rej := accept(Input{Text: "  hello  "}, nil)
	if rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}
	if v != "hello" {
		t.Fatalf("value = %v, want trimmed text", v)
	}

	if _, rej := accept(Input{Text: "   "}, nil); rej == nil {
		t.Fatal("blank input must be rejected")
	}
}

func TestMaxLen(t *testing.T) {
	accept := MaxLen(5, "at most %d characters")

	if _, rej := accept(Input{Text: "abcde"}, nil); rej != nil {
		t.Fatalf("unexpected rejection: %v", rej)
	}

	_, rej := accept(Input{Text: "abcdef"}, nil)
	if rej == nil {
		t.Fatal("over-length input must be rejected")
	}
	if !strings.Contains(rej.Reason, "5") {
		t.Fatalf("reject reason = %q, want the limit interpolated", rej.Reason)
	}

	// Length is counted in runes, not bytes.
	if _, rej := accept(Input{Text: "привет"}, nil); rej == nil {
		t.Fatal("6 runes over a 5-rune cap must be rejected")
	}
	if _, rej := accept(Input{Text: "приве"}, nil); rej != nil {
		t.Fatalf("5 runes must pass: %v", rej)
	}
}

func TestOneOf(t *testing.T) {
	accept := OneOf([]string{"a", "b"}, "pick one")

	v, rej := accept(Input{Text: " b "}, nil)
	if rej != nil || v != "b" {
		t.Fatalf("v=%v rej=%v", v, rej)
	}
	if _, rej := accept(Input{Text: "c"}, nil); rej == nil {
		t.Fatal("unknown option must be rejected")
	}
}

func TestMapped(t *testing.T) {
	accept := Mapped(map[string]string{"🙋 Нашёл": "found"}, "pick one")

	v, rej := accept(Input{Text: "🙋 Нашёл"}, nil)
	if rej != nil || v != "found" {
		t.Fatalf("v=%v rej=%v", v, rej)
	}
	if _, rej := accept(Input{Text: "found"}, nil); rej == nil {
		t.Fatal("raw stored value is not a valid label")
	}
}
