package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetUserMediaDenied(t *testing.T) {
	fc := NewFakeContext(nil, 0)
	fc.SetDeny(errors.New("permission refused"))

	mic := NewMicrophone(fc, nil)
	s, err := mic.GetUserMedia(context.Background())
	if !errors.Is(err, ErrMicrophoneDenied) {
		t.Fatalf("err = %v, want ErrMicrophoneDenied", err)
	}
	if s != nil {
		t.Error("expected nil stream on denial")
	}
	if fc.Live() != 0 {
		t.Errorf("live captures = %d, want 0", fc.Live())
	}
}

func TestStreamFanOut(t *testing.T) {
	fc := NewFakeContext(nil, 0)
	mic := NewMicrophone(fc, nil)

	s, err := mic.GetUserMedia(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var a, b int
	disconnectA := s.Connect(func(data []byte, _ uint32) { a += len(data) })
	s.Connect(func(data []byte, _ uint32) { b += len(data) })

	fc.PushAll(make([]byte, 64))
	disconnectA()
	disconnectA() // second call is a no-op
	fc.PushAll(make([]byte, 64))

	if a != 64 {
		t.Errorf("a received %d bytes, want 64", a)
	}
	if b != 128 {
		t.Errorf("b received %d bytes, want 128", b)
	}
}

func TestStreamCloseReleasesDevice(t *testing.T) {
	fc := NewFakeContext(Tone(440, 100*time.Millisecond, 0.5), time.Millisecond)
	mic := NewMicrophone(fc, nil)

	s, err := mic.GetUserMedia(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fc.Live() != 1 {
		t.Fatalf("live = %d, want 1", fc.Live())
	}

	got := make(chan struct{}, 1)
	s.Connect(func([]byte, uint32) {
		select {
		case got <- struct{}{}:
		default:
		}
	})
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no audio delivered")
	}

	s.Close()
	s.Close()
	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if fc.Live() != 0 {
		t.Errorf("live = %d after Close, want 0", fc.Live())
	}
}

func TestGetUserMediaCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mic := NewMicrophone(NewFakeContext(nil, 0), nil)
	if _, err := mic.GetUserMedia(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestToneLength(t *testing.T) {
	pcm := Tone(440, 500*time.Millisecond, 0.5)
	if want := SampleRate / 2 * BytesPerFrame; len(pcm) != want {
		t.Errorf("len = %d, want %d", len(pcm), want)
	}
}
