package speech

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	ev := Event{
		ResultIndex: 3,
		Results: []Slot{
			{Transcript: " hello ", IsFinal: true},
			{Transcript: "wor"},
			{Transcript: "world"},
			{Transcript: "   ", IsFinal: true},
		},
	}
	r, err := Normalize(ev)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.FinalSegments) != 1 || r.FinalSegments[0] != (Segment{Index: 3, Text: "hello"}) {
		t.Errorf("finals = %+v", r.FinalSegments)
	}
	if r.InterimText != "world" {
		t.Errorf("interim = %q, want last interim slot", r.InterimText)
	}
}

func TestNormalizeRejects(t *testing.T) {
	for name, ev := range map[string]Event{
		"negative index": {ResultIndex: -1},
		"error event":    {Error: "network"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Normalize(ev); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("err = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestNormalizeError(t *testing.T) {
	if NormalizeError(Event{}) != nil {
		t.Error("result event should not normalise to an error")
	}

	rerr := NormalizeError(Event{Error: "no-speech"})
	if rerr.Code != CodeNoSpeech {
		t.Errorf("code = %v", rerr.Code)
	}

	rerr = NormalizeError(Event{Error: "deepgram", Message: "quota"})
	if rerr.Code != CodeUnknown || rerr.Message != "quota" {
		t.Errorf("got %+v", rerr)
	}

	rerr = NormalizeError(Event{Error: "weird"})
	if rerr.Message != "weird" {
		t.Errorf("unknown code should be kept as message, got %+v", rerr)
	}
}

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, s := range []string{"no-speech", "aborted", "audio-capture", "network", "not-allowed", "service-not-allowed", "bad-grammar", "language-not-supported"} {
		if got := ParseErrorCode(s).String(); got != s {
			t.Errorf("%q -> %q", s, got)
		}
	}
	if got := ParseErrorCode("nope").String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
