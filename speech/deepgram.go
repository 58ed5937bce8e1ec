package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxpad/audio"
	"voxpad/log"
)

const (
	deepgramURL          = "wss://api.deepgram.com/v1/listen"
	deepgramModel        = "nova-2"
	deepgramChunkMs      = 100
	deepgramChunkBytes   = audio.SampleRate * audio.BytesPerFrame * deepgramChunkMs / 1000
	deepgramAudioBuffer  = 64
	deepgramCloseTimeout = 3 * time.Second
)

// Deepgram streams microphone audio to Deepgram's live transcription API.
type Deepgram struct {
	apiKey   string
	mic      *audio.Microphone
	Endpoint string
	Model    string
	Dialer   *websocket.Dialer
}

func NewDeepgram(apiKey string, mic *audio.Microphone) *Deepgram {
	return &Deepgram{
		apiKey:   apiKey,
		mic:      mic,
		Endpoint: deepgramURL,
		Model:    deepgramModel,
		Dialer:   websocket.DefaultDialer,
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Available() bool { return d.apiKey != "" && d.mic != nil }

func (d *Deepgram) NewEngine(cfg Config) (Engine, error) {
	if _, err := ParseTag(string(cfg.Lang)); err != nil {
		return nil, err
	}
	return &deepgramEngine{
		d:        d,
		cfg:      cfg,
		events:   make(chan Event, 16),
		audioCh:  make(chan []byte, deepgramAudioBuffer),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}, nil
}

// deepgramLanguage maps a locale to the code Deepgram's models accept.
func deepgramLanguage(t Tag) string {
	switch t {
	case Hindi:
		return "hi"
	case Marathi:
		return "mr"
	}
	return string(t)
}

func (d *Deepgram) listenURL(cfg Config) (string, error) {
	endpoint, err := url.Parse(d.Endpoint)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("model", d.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", strconv.Itoa(audio.Channels))
	q.Set("language", deepgramLanguage(cfg.Lang))
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("punctuate", "true")
	if cfg.Continuous {
		q.Set("endpointing", "300")
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

type deepgramResponse struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

type deepgramEngine struct {
	d   *Deepgram
	cfg Config

	events   chan Event
	conn     *websocket.Conn
	stream   *audio.Stream
	sendDone chan struct{}
	recvDone chan struct{}
	closing  atomic.Bool
	stopOnce sync.Once

	feedMu     sync.Mutex
	feedBuf    []byte
	feedClosed bool
	audioCh    chan []byte

	index int // current utterance slot; receiver goroutine only
}

func (e *deepgramEngine) Events() <-chan Event { return e.events }

func (e *deepgramEngine) Start(ctx context.Context) error {
	u, err := e.d.listenURL(e.cfg)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+e.d.apiKey)

	conn, resp, err := e.d.Dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return &RecognitionError{Code: CodeNotAllowed, Message: resp.Status}
			case http.StatusBadRequest:
				return &RecognitionError{Code: CodeLanguageNotSupported, Message: resp.Status}
			}
		}
		return fmt.Errorf("deepgram dial: %w", err)
	}

	stream, err := e.d.mic.GetUserMedia(ctx)
	if err != nil {
		conn.Close()
		return fmt.Errorf("deepgram capture: %w", err)
	}

	e.conn = conn
	e.stream = stream
	stream.Connect(e.feed)

	go e.runSender()
	go e.runReceiver()
	return nil
}

// feed slices captured PCM into fixed chunks. Chunks are dropped when the
// sender falls behind rather than blocking the capture callback.
func (e *deepgramEngine) feed(pcm []byte, _ uint32) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()
	if e.feedClosed {
		return
	}
	e.feedBuf = append(e.feedBuf, pcm...)
	for len(e.feedBuf) >= deepgramChunkBytes {
		chunk := make([]byte, deepgramChunkBytes)
		copy(chunk, e.feedBuf[:deepgramChunkBytes])
		e.feedBuf = e.feedBuf[deepgramChunkBytes:]
		select {
		case e.audioCh <- chunk:
		default:
			log.Warn("deepgram audio chunk dropped")
		}
	}
}

func (e *deepgramEngine) runSender() {
	defer close(e.sendDone)
	for chunk := range e.audioCh {
		if err := e.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			// the receiver reports the broken connection
			for range e.audioCh {
			}
			return
		}
	}
	if err := e.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		log.Warnf("deepgram close stream: %v", err)
	}
}

func (e *deepgramEngine) runReceiver() {
	defer close(e.recvDone)
	defer close(e.events)
	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			if !e.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				e.events <- Event{Error: "network", Message: err.Error()}
			}
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Warnf("deepgram: bad message: %v", err)
			continue
		}

		switch resp.Type {
		case "Results":
			transcript := ""
			if len(resp.Channel.Alternatives) > 0 {
				transcript = resp.Channel.Alternatives[0].Transcript
			}
			e.events <- Event{
				ResultIndex: e.index,
				Results:     []Slot{{Transcript: transcript, IsFinal: resp.IsFinal}},
			}
			if resp.IsFinal {
				e.index++
			}
		case "Error":
			msg := resp.Description
			if msg == "" {
				msg = resp.Message
			}
			e.events <- Event{Error: "deepgram", Message: msg}
		}
	}
}

// Stop releases the microphone and asks Deepgram to flush. Final results
// for the last utterance keep arriving on Events until the server closes
// the socket or deepgramCloseTimeout passes.
func (e *deepgramEngine) Stop() {
	e.stopOnce.Do(func() {
		if e.conn == nil {
			close(e.events)
			return
		}
		e.stream.Close()

		e.feedMu.Lock()
		e.feedClosed = true
		if len(e.feedBuf) > 0 {
			select {
			case e.audioCh <- e.feedBuf:
			default:
			}
			e.feedBuf = nil
		}
		close(e.audioCh)
		e.feedMu.Unlock()

		go func() {
			<-e.sendDone
			select {
			case <-e.recvDone:
			case <-time.After(deepgramCloseTimeout):
				log.Warn("deepgram did not close the stream in time")
			}
			e.closing.Store(true)
			e.conn.Close()
		}()
	})
}
