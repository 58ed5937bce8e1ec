package visualizer

import (
	"sync"
	"sync/atomic"

	"voxpad/audio"
)

// Graph is a live microphone stream connected to an analyser. Closing the
// graph releases the stream.
type Graph struct {
	stream     *audio.Stream
	analyser   *Analyser
	disconnect func()

	once   sync.Once
	closed atomic.Bool
}

func NewGraph(stream *audio.Stream) *Graph {
	a := NewAnalyser()
	return &Graph{
		stream:     stream,
		analyser:   a,
		disconnect: stream.Connect(a.Write),
	}
}

func (g *Graph) Analyser() *Analyser { return g.analyser }

func (g *Graph) DeviceName() string { return g.stream.DeviceName() }

// Closed reports whether the graph or its underlying stream was closed.
func (g *Graph) Closed() bool {
	return g.closed.Load() || g.stream.Closed()
}

func (g *Graph) Close() {
	g.once.Do(func() {
		g.closed.Store(true)
		g.disconnect()
		g.stream.Close()
	})
}
