package speech

import (
	"errors"
	"fmt"
)

// Tag is a BCP-47 locale understood by the recognition engine.
type Tag string

const (
	EnglishIndia Tag = "en-IN"
	Hindi        Tag = "hi-IN"
	Marathi      Tag = "mr-IN"
)

// DefaultTag is selected at startup unless configured otherwise.
const DefaultTag = EnglishIndia

var ErrUnknownTag = errors.New("unsupported language")

var languages = []struct {
	tag   Tag
	label string
}{
	{EnglishIndia, "English (India)"},
	{Hindi, "Hindi"},
	{Marathi, "Marathi"},
}

// Tags lists the selectable languages in display order.
func Tags() []Tag {
	out := make([]Tag, len(languages))
	for i, l := range languages {
		out[i] = l.tag
	}
	return out
}

func ParseTag(s string) (Tag, error) {
	for _, l := range languages {
		if string(l.tag) == s {
			return l.tag, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

func (t Tag) String() string { return string(t) }

func (t Tag) Label() string {
	for _, l := range languages {
		if l.tag == t {
			return l.label
		}
	}
	return string(t)
}

// Next cycles through Tags, wrapping around.
func (t Tag) Next() Tag {
	for i, l := range languages {
		if l.tag == t {
			return languages[(i+1)%len(languages)].tag
		}
	}
	return languages[0].tag
}
