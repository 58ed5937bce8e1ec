package speech

import (
	"errors"
	"fmt"
	"strings"
)

// Slot is one recognition hypothesis as reported by an engine.
type Slot struct {
	Transcript string
	IsFinal    bool
}

// Event is the raw payload an engine delivers. Results holds the slots
// starting at absolute index ResultIndex. A non-empty Error marks an error
// event carrying an engine-defined code.
type Event struct {
	ResultIndex int
	Results     []Slot
	Error       string
	Message     string
}

func (e Event) IsError() bool { return e.Error != "" }

// Segment is a finalised piece of text with its absolute slot index.
type Segment struct {
	Index int
	Text  string
}

// Result is a validated recognition event.
type Result struct {
	FinalSegments []Segment
	InterimText   string
}

var ErrInvalidEvent = errors.New("invalid recognition event")

// Normalize validates a raw result event. Each interim slot replaces the
// previous one; the last interim slot of the window wins.
func Normalize(ev Event) (Result, error) {
	if ev.IsError() {
		return Result{}, fmt.Errorf("%w: error event %q", ErrInvalidEvent, ev.Error)
	}
	if ev.ResultIndex < 0 {
		return Result{}, fmt.Errorf("%w: negative result index %d", ErrInvalidEvent, ev.ResultIndex)
	}

	var r Result
	for i, slot := range ev.Results {
		text := strings.TrimSpace(slot.Transcript)
		if slot.IsFinal {
			if text != "" {
				r.FinalSegments = append(r.FinalSegments, Segment{Index: ev.ResultIndex + i, Text: text})
			}
			continue
		}
		r.InterimText = text
	}
	return r, nil
}

type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeNoSpeech
	CodeAborted
	CodeAudioCapture
	CodeNetwork
	CodeNotAllowed
	CodeServiceNotAllowed
	CodeBadGrammar
	CodeLanguageNotSupported
)

var errorCodes = map[string]ErrorCode{
	"no-speech":              CodeNoSpeech,
	"aborted":                CodeAborted,
	"audio-capture":          CodeAudioCapture,
	"network":                CodeNetwork,
	"not-allowed":            CodeNotAllowed,
	"service-not-allowed":    CodeServiceNotAllowed,
	"bad-grammar":            CodeBadGrammar,
	"language-not-supported": CodeLanguageNotSupported,
}

func ParseErrorCode(s string) ErrorCode {
	if c, ok := errorCodes[s]; ok {
		return c
	}
	return CodeUnknown
}

func (c ErrorCode) String() string {
	for k, v := range errorCodes {
		if v == c {
			return k
		}
	}
	return "unknown"
}

// RecognitionError is an engine-reported failure during listening.
type RecognitionError struct {
	Code    ErrorCode
	Message string
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return "recognition error: " + e.Code.String()
	}
	return "recognition error: " + e.Code.String() + ": " + e.Message
}

// NormalizeError converts an error event. It returns nil for result events.
func NormalizeError(ev Event) *RecognitionError {
	if !ev.IsError() {
		return nil
	}
	msg := ev.Message
	code := ParseErrorCode(ev.Error)
	if code == CodeUnknown && msg == "" {
		msg = ev.Error
	}
	return &RecognitionError{Code: code, Message: msg}
}
