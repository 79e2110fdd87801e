package wizard

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NonEmpty accepts any non-blank text input, trimmed.
func NonEmpty(reject string) AcceptFunc {
	return func(in Input, _ Draft) (interface{}, *Rejection) {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, &Rejection{Reason: reject}
		}
		return text, nil
	}
}

// MaxLen accepts non-blank text of at most n runes.
func MaxLen(n int, reject string) AcceptFunc {
	return func(in Input, _ Draft) (interface{}, *Rejection) {
		text := strings.TrimSpace(in.Text)
		if text == "" || utf8.RuneCountInString(text) > n {
			return nil, &Rejection{Reason: fmt.Sprintf(reject, n)}
		}
		return text, nil
	}
}

// OneOf accepts only inputs drawn from the closed option set. Anything
// else is rejected and the step re-renders its selection prompt.
func OneOf(options []string, reject string) AcceptFunc {
	return func(in Input, _ Draft) (interface{}, *Rejection) {
		text := strings.TrimSpace(in.Text)
		for _, opt := range options {
			if text == opt {
				return text, nil
			}
		}
		return nil, &Rejection{Reason: reject}
	}
}

// Mapped accepts only keys of the mapping and stores the mapped value
// (button label → stored enum value).
func Mapped(mapping map[string]string, reject string) AcceptFunc {
	return func(in Input, _ Draft) (interface{}, *Rejection) {
		text := strings.TrimSpace(in.Text)
		if v, ok := mapping[text]; ok {
			return v, nil
		}
		return nil, &Rejection{Reason: reject}
	}
}
