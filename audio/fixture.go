package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mewkiz/flac"
)

const WAVHeaderSize = 44

// LoadPCM reads a recording as 16-bit mono PCM at SampleRate. WAV files must
// already be in that format; FLAC files are decoded.
func LoadPCM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return DecodeFLAC(bytes.NewReader(data))
	case ".wav":
		if len(data) < WAVHeaderSize || string(data[:4]) != "RIFF" {
			return nil, fmt.Errorf("%s: not a WAV file", path)
		}
		return data[WAVHeaderSize:], nil
	}
	return nil, fmt.Errorf("%s: unsupported recording format", path)
}

// DecodeFLAC decodes a FLAC stream at SampleRate into 16-bit PCM. Only the
// first channel is kept.
func DecodeFLAC(r io.Reader) ([]byte, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("parsing flac header: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info.SampleRate != SampleRate {
		return nil, fmt.Errorf("flac sample rate %d, want %d", info.SampleRate, SampleRate)
	}
	shift := int(info.BitsPerSample) - BitsPerSample

	var pcm []byte
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding flac frame: %w", err)
		}
		for _, s := range f.Subframes[0].Samples {
			switch {
			case shift > 0:
				s >>= shift
			case shift < 0:
				s <<= -shift
			}
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(s)))
		}
	}
	return pcm, nil
}
