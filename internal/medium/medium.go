// Package medium owns the lifecycle of a connected debug session: the
// byte stream, the transport framer, the presentation codec, and the
// CPU registry/register catalog they share. All three protocol layers
// are constructed together on connect and torn down together on
// disconnect, never left partially wired.
//
// Grounded on original_source/EmbeddedDebugger/Medium/Medium.cpp
// (createDebugProtocolV0Layers / destroyProtocolLayers / clear) and, for
// the goroutine supervision shape, on the teacher's go.mod dependency on
// golang.org/x/sync (promoted here from an indirect ebiten dependency to
// a direct, exercised one).
package medium

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sigurn/crc8"
	"golang.org/x/sync/errgroup"

	"github.com/demcon/embeddeddebugger/internal/cpu"
	"github.com/demcon/embeddeddebugger/internal/eventbus"
	"github.com/demcon/embeddeddebugger/internal/presentation"
	"github.com/demcon/embeddeddebugger/internal/register"
	"github.com/demcon/embeddeddebugger/internal/transport"
)

// State is the medium binding's connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// Stream is the byte-stream collaborator a medium binds to. Real serial
// or TCP I/O implements it; tests supply an in-memory one.
type Stream interface {
	io.Reader
	io.Writer
	Close() error
}

// Dialer produces a Stream when a medium connects. A concrete TCP dialer
// is provided in tcp.go; tests can supply any function.
type Dialer func(ctx context.Context) (Stream, error)

// Medium is one connected (or connectable) debug session.
type Medium struct {
	bus    *eventbus.Bus
	loader register.Loader

	mu           sync.Mutex
	state        State
	stream       Stream
	framer       *transport.Framer
	registry     *cpu.Registry
	catalog      *register.Catalog
	presentation *presentation.Codec
	writeMu      sync.Mutex

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds a disconnected Medium. bus receives every observer event;
// loader resolves register catalogs for newly discovered CPUs.
func New(bus *eventbus.Bus, loader register.Loader) *Medium {
	return &Medium{bus: bus, loader: loader, state: Disconnected}
}

func (m *Medium) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Codec returns the active presentation codec, or nil when disconnected.
func (m *Medium) Codec() *presentation.Codec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presentation
}

func (m *Medium) Registry() *cpu.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry
}

func (m *Medium) Catalog() *register.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog
}

// Connect dials a stream and constructs the framer/registry/catalog/
// presentation layers atomically, then sends the initial broadcast scan.
func (m *Medium) Connect(ctx context.Context, dial Dialer) error {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return fmt.Errorf("medium: connect called in state %s", m.state)
	}
	m.state = Connecting
	m.mu.Unlock()

	stream, err := dial(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		m.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrTransport, Err: err})
		return err
	}

	table := crc8.MakeTable(crc8.CRC8_MAXIM)
	framer := transport.NewFramer(table)
	registry := cpu.NewRegistry()
	catalog := register.NewCatalog()
	pres := presentation.New(registry, catalog, m.bus, m.loader)

	framer.SetMalformedHandler(func(cpuID uint8, recoverable bool) {
		if !recoverable {
			m.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrMalformedFrame})
			return
		}
		if c, ok := registry.Get(cpuID); ok {
			c.RecordInvalidMessage()
		}
		m.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrMalformedFrame})
	})

	runCtx, cancel := context.WithCancel(ctx)
	group, runCtx := errgroup.WithContext(runCtx)

	m.mu.Lock()
	m.stream = stream
	m.framer = framer
	m.registry = registry
	m.catalog = catalog
	m.presentation = pres
	m.cancel = cancel
	m.group = group
	m.state = Connected
	m.mu.Unlock()

	group.Go(func() error { return m.readLoop(runCtx, stream, framer, pres) })

	if err := m.sendOutbound(pres.EncodeScan()); err != nil {
		_ = m.Disconnect()
		return err
	}
	return nil
}

func (m *Medium) readLoop(ctx context.Context, stream Stream, framer *transport.Framer, pres *presentation.Codec) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := stream.Read(buf)
		if n > 0 {
			for _, frame := range framer.Feed(buf[:n]) {
				for _, fu := range pres.HandleInbound(frame.CPUID, frame.Payload) {
					if len(fu.Payload) == 0 {
						continue
					}
					if sendErr := m.sendOutbound(fu); sendErr != nil {
						return sendErr
					}
				}
			}
		}
		if err != nil {
			m.bus.Publish(eventbus.Event{Kind: eventbus.ErrorEvent, ErrKind: eventbus.ErrTransport, Err: err})
			// A stream that closes under a still-connected session tears it
			// down like Disconnect. Disconnect waits for this goroutine, so
			// it runs on its own goroutine.
			m.mu.Lock()
			closedExternally := m.state == Connected && m.stream == stream
			m.mu.Unlock()
			if closedExternally {
				go func() { _ = m.Disconnect() }()
			}
			return err
		}
	}
}

// Send frames and writes payload addressed to cpuID. Callers are the
// application facade and the inbound read loop's own follow-up commands.
func (m *Medium) Send(cpuID uint8, payload []byte) error {
	return m.sendOutbound(presentation.Outbound{CPUID: cpuID, Payload: payload})
}

func (m *Medium) sendOutbound(o presentation.Outbound) error {
	if len(o.Payload) == 0 {
		return nil
	}
	m.mu.Lock()
	stream, framer := m.stream, m.framer
	state := m.state
	m.mu.Unlock()
	if state != Connected {
		return fmt.Errorf("medium: send called in state %s", state)
	}
	frame := framer.EncodeCommand(o.CPUID, o.Payload)
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_, err := stream.Write(frame)
	return err
}

// Disconnect tears down the stream and every protocol layer together,
// same as an external stream closure.
func (m *Medium) Disconnect() error {
	m.mu.Lock()
	if m.state == Disconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = Disconnecting
	cancel := m.cancel
	stream := m.stream
	group := m.group
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var closeErr error
	if stream != nil {
		closeErr = stream.Close()
	}
	if group != nil {
		_ = group.Wait()
	}

	m.mu.Lock()
	m.stream = nil
	m.framer = nil
	m.registry = nil
	m.catalog = nil
	m.presentation = nil
	m.cancel = nil
	m.group = nil
	m.state = Disconnected
	m.mu.Unlock()
	return closeErr
}
