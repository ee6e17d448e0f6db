package audio

import (
	"fmt"
	"io"
	"sync"
)

// Source supplies interleaved PCM to a routing graph. ReadPCM fills up to
// len(buf) samples and returns the count filled; io.EOF marks the end of the
// stream. A source at EOF contributes silence to the mix.
type Source interface {
	ReadPCM(buf []int16) (int, error)
}

// ProgrammingError reports a misuse of the routing graph, most importantly a
// second wiring attempt on a port that is already routed. Wiring a playable
// element's output is a one-shot operation: once routed, rerouting it
// elsewhere would silently corrupt later playback, so it fails loudly
// instead.
type ProgrammingError struct {
	Op string
}

func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("audio graph misuse: %s", e.Op)
}

// Port is the single connection point between a playable element and a
// Graph. A port can be wired into exactly one graph over its lifetime;
// Disconnect detaches it from the mix but it stays bound to that graph.
type Port struct {
	src Source

	mu       sync.Mutex
	graph    *Graph
	attached bool
	muted    bool
}

// NewPort wraps a source in an unwired port.
func NewPort(src Source) *Port {
	return &Port{src: src}
}

// SetMuted silences the port's contribution without detaching it.
func (p *Port) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

// Muted reports whether the port is currently silenced.
func (p *Port) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Wired reports whether the port has ever been connected to a graph.
func (p *Port) Wired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph != nil
}

// Graph mixes the PCM of its connected ports into single frames for the
// capture sink. It is exclusively owned by one export operation.
type Graph struct {
	mu    sync.Mutex
	ports []*Port
}

// NewGraph creates an empty routing graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Connect wires a port into the graph. A port that is already attached, or
// that was ever wired into a different graph, cannot be connected again.
func (g *Graph) Connect(p *Port) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return &ProgrammingError{Op: "port is already connected"}
	}
	if p.graph != nil && p.graph != g {
		return &ProgrammingError{Op: "port was wired into another graph"}
	}
	p.graph = g
	p.attached = true

	g.mu.Lock()
	g.ports = append(g.ports, p)
	g.mu.Unlock()
	return nil
}

// Disconnect detaches a port from the mix. Safe to call on a detached port.
func (g *Graph) Disconnect(p *Port) {
	g.mu.Lock()
	for i, q := range g.ports {
		if q == p {
			g.ports = append(g.ports[:i], g.ports[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	p.mu.Lock()
	p.attached = false
	p.mu.Unlock()
}

// ReadFrame mixes one frame of n interleaved samples from all attached,
// unmuted ports. Exhausted sources contribute silence; the frame is always
// full length.
func (g *Graph) ReadFrame(n int) []int16 {
	g.mu.Lock()
	ports := make([]*Port, len(g.ports))
	copy(ports, g.ports)
	g.mu.Unlock()

	frame := make([]int16, n)
	scratch := make([]int16, n)
	for _, p := range ports {
		if p.Muted() {
			continue
		}
		read, err := p.src.ReadPCM(scratch)
		if err != nil && err != io.EOF {
			continue
		}
		MixInto(frame, scratch[:read])
	}
	return frame
}
