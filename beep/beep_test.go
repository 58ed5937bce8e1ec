package beep

import "testing"

func TestCueSamples(t *testing.T) {
	start, stop, errCue := Samples(Start), Samples(Stop), Samples(Error)
	if len(start) == 0 || len(stop) == 0 || len(errCue) == 0 {
		t.Fatal("empty cue")
	}
	if len(errCue) <= len(start) {
		t.Errorf("error cue (%d) should be longer than start cue (%d)", len(errCue), len(start))
	}

	// the double beep has a silent gap in the middle
	mid := len(errCue) / 2
	if errCue[mid] != 0 {
		t.Errorf("error cue gap sample = %d", errCue[mid])
	}
}

func TestTickEnvelopeDecays(t *testing.T) {
	s := tick(1000, 0.05, 0.5, 60)
	peak := func(from, to int) int16 {
		var m int16
		for _, v := range s[from:to] {
			if v < 0 {
				v = -v
			}
			m = max(m, v)
		}
		return m
	}
	head := peak(0, len(s)/4)
	tail := peak(3*len(s)/4, len(s))
	if head == 0 || tail >= head {
		t.Errorf("head peak %d, tail peak %d", head, tail)
	}
	if head > int16(32767/2)+1 {
		t.Errorf("peak %d exceeds volume", head)
	}
}

func TestDisabledIsSilent(t *testing.T) {
	Disable()
	if !Disabled() {
		t.Fatal("Disable had no effect")
	}
	// must return immediately without touching audio hardware
	Play(Start)
	Notifier{}.Notify("x")
}

func TestCueString(t *testing.T) {
	if Start.String() != "start" || Error.String() != "error" || Cue(9).String() != "unknown" {
		t.Error("cue names")
	}
}
