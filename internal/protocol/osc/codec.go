package osc

import (
	"fmt"
	"time"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Encode serializes a single message.
func Encode(m Message) ([]byte, error) {
	wire, err := toWire(m)
	if err != nil {
		return nil, err
	}
	return wire.MarshalBinary()
}

// EncodeBundle wraps messages in one #bundle.
func EncodeBundle(msgs ...Message) ([]byte, error) {
	b := goosc.NewBundle(time.Now())
	for _, m := range msgs {
		wire, err := toWire(m)
		if err != nil {
			return nil, err
		}
		if err := b.Append(wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return b.MarshalBinary()
}

// Decode parses one UDP packet. A bundle's own messages come before the
// messages of bundles nested in it.
func Decode(packet []byte) (msgs []Message, err error) {
	if len(packet) == 0 {
		return nil, ErrTruncated
	}
	if packet[0] != '/' && packet[0] != '#' {
		return nil, fmt.Errorf("%w: leading byte %q", ErrInvalidAddress, packet[0])
	}
	// Datagrams come from the network; a parser fault drops the packet
	// instead of the listener.
	defer func() {
		if r := recover(); r != nil {
			msgs, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	parsed, err := goosc.ParsePacket(string(packet))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch p := parsed.(type) {
	case *goosc.Message:
		m, err := fromWire(p)
		if err != nil {
			return nil, err
		}
		return []Message{m}, nil
	case *goosc.Bundle:
		return flatten(p, nil)
	default:
		return nil, fmt.Errorf("%w: packet type %T", ErrMalformed, parsed)
	}
}

func flatten(b *goosc.Bundle, out []Message) ([]Message, error) {
	for _, wm := range b.Messages {
		m, err := fromWire(wm)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	for _, nested := range b.Bundles {
		var err error
		if out, err = flatten(nested, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toWire(m Message) (*goosc.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	wire := goosc.NewMessage(m.Address)
	for _, a := range m.Args {
		switch a.Tag {
		case TagInt32:
			wire.Append(a.Int)
		case TagFloat32:
			wire.Append(a.Float)
		case TagString:
			wire.Append(a.Str)
		case TagBlob:
			wire.Append(a.Blob)
		case TagTrue:
			wire.Append(true)
		case TagFalse:
			wire.Append(false)
		case TagNil:
			wire.Append(nil)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, a.Tag)
		}
	}
	return wire, nil
}

func fromWire(wm *goosc.Message) (Message, error) {
	m := Message{Address: wm.Address}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	if len(wm.Arguments) > 0 {
		m.Args = make([]Arg, 0, len(wm.Arguments))
	}
	for _, raw := range wm.Arguments {
		switch v := raw.(type) {
		case int32:
			m.Args = append(m.Args, Int32(v))
		case float32:
			m.Args = append(m.Args, Float32(v))
		case string:
			m.Args = append(m.Args, String(v))
		case []byte:
			m.Args = append(m.Args, Blob(v))
		case bool:
			m.Args = append(m.Args, Bool(v))
		case nil:
			m.Args = append(m.Args, Nil())
		default:
			return Message{}, fmt.Errorf("%w: %T at %s", ErrUnsupportedType, raw, m.Address)
		}
	}
	return m, nil
}
