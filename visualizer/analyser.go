package visualizer

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	FFTSize = 64
	Bins    = FFTSize / 2

	SmoothingTimeConstant = 0.8
	MinDecibels           = -100.0
	MaxDecibels           = -30.0
)

// Analyser turns the most recent FFTSize samples of a PCM stream into byte
// frequency magnitudes, scaled the way browser AnalyserNodes scale them.
type Analyser struct {
	mu     sync.Mutex
	fft    *fourier.FFT
	window []float64
	ring   []float64
	pos    int
	smooth []float64
	frame  []float64
	coeffs []complex128
}

func NewAnalyser() *Analyser {
	return &Analyser{
		fft:    fourier.NewFFT(FFTSize),
		window: blackman(FFTSize),
		ring:   make([]float64, FFTSize),
		smooth: make([]float64, Bins),
		frame:  make([]float64, FFTSize),
		coeffs: make([]complex128, FFTSize/2+1),
	}
}

// blackman uses the periodic form (divide by n, not n-1).
func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// Write consumes 16-bit little-endian mono PCM. It matches audio.DataCallback.
func (a *Analyser) Write(pcm []byte, _ uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		a.ring[a.pos] = float64(s) / 32768
		a.pos = (a.pos + 1) % FFTSize
	}
}

// ByteFrequencyData fills dst with one magnitude per bin. Each call advances
// the smoothing state, like one animation frame reading the analyser.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.frame {
		a.frame[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	n := min(len(dst), Bins)
	for k := range Bins {
		mag := cmplx.Abs(a.coeffs[k]) / FFTSize
		a.smooth[k] = SmoothingTimeConstant*a.smooth[k] + (1-SmoothingTimeConstant)*mag
		if k < n {
			dst[k] = toByte(a.smooth[k])
		}
	}
}

func toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}
