package signal

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/danmuck/radiomute/internal/protocol/osc"
	"github.com/rs/zerolog/log"
)

const maxPacketSize = 64 * 1024

// Handler consumes decoded messages.
type Handler interface {
	Handle(m osc.Message) error
}

// DecodeErrorFunc observes packets that could not be decoded.
type DecodeErrorFunc func(err error)

// Listener reads OSC packets from one UDP socket.
type Listener struct {
	conn     net.PacketConn
	handler  Handler
	onDecode DecodeErrorFunc
}

// Listen binds addr. The caller must Serve or Close the listener.
func Listen(addr string, handler Handler, onDecode DecodeErrorFunc) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("signal: listen %s: %w", addr, err)
	}
	return &Listener{conn: conn, handler: handler, onDecode: onDecode}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

// Serve reads until ctx is done or the socket fails. A canceled context
// returns nil.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("signal: read: %w", err)
		}
		l.handlePacket(buf[:n], from)
	}
}

func (l *Listener) handlePacket(packet []byte, from net.Addr) {
	msgs, err := osc.Decode(packet)
	if err != nil {
		log.Warn().Err(err).Str("from", from.String()).Int("bytes", len(packet)).Msg("signal.Listener.decode failed")
		if l.onDecode != nil {
			l.onDecode(err)
		}
		return
	}
	for _, m := range msgs {
		if err := l.handler.Handle(m); err != nil {
			log.Warn().Err(err).Str("address", m.Address).Msg("signal.Listener.handle failed")
		}
	}
}
