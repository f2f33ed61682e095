package osc

import (
	"fmt"
	"strings"
)

// Type tags the host exchanges.
const (
	TagInt32   byte = 'i'
	TagFloat32 byte = 'f'
	TagString  byte = 's'
	TagBlob    byte = 'b'
	TagTrue    byte = 'T'
	TagFalse   byte = 'F'
	TagNil     byte = 'N'
)

// Arg is one typed OSC argument. Only the field matching Tag is set.
type Arg struct {
	Tag   byte
	Int   int32
	Float float32
	Str   string
	Blob  []byte
}

func Int32(v int32) Arg { return Arg{Tag: TagInt32, Int: v} }
func Float32(v float32) Arg { return Arg{Tag: TagFloat32, Float: v} }
func String(v string) Arg { return Arg{Tag: TagString, Str: v} }
func Blob(v []byte) Arg { return Arg{Tag: TagBlob, Blob: v} }
func Nil() Arg { return Arg{Tag: TagNil} }

func Bool(v bool) Arg {
	if v {
		return Arg{Tag: TagTrue}
	}
	return Arg{Tag: TagFalse}
}

// Bool coerces T/F, ints and floats. Avatar hosts send bool parameters as
// T/F but some bridges forward them as 0/1 numbers.
func (a Arg) Bool() (bool, error) {
	switch a.Tag {
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	case TagInt32:
		return a.Int != 0, nil
	case TagFloat32:
		return a.Float != 0, nil
	default:
		return false, fmt.Errorf("%w: %q is not boolean", ErrArgumentType, a.Tag)
	}
}

func (a Arg) String() string {
	switch a.Tag {
	case TagInt32:
		return fmt.Sprintf("i:%d", a.Int)
	case TagFloat32:
		return fmt.Sprintf("f:%g", a.Float)
	case TagString:
		return fmt.Sprintf("s:%q", a.Str)
	case TagBlob:
		return fmt.Sprintf("b:%d bytes", len(a.Blob))
	case TagTrue:
		return "T"
	case TagFalse:
		return "F"
	case TagNil:
		return "N"
	default:
		return fmt.Sprintf("?:%q", a.Tag)
	}
}

// Message is one OSC message.
type Message struct {
	Address string
	Args    []Arg
}

func NewMessage(address string, args ...Arg) Message {
	return Message{Address: address, Args: args}
}

func (m Message) Validate() error {
	if !strings.HasPrefix(m.Address, "/") || strings.ContainsRune(m.Address, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, m.Address)
	}
	return nil
}

// FirstBool returns the first argument coerced to bool.
func (m Message) FirstBool() (bool, error) {
	if len(m.Args) == 0 {
		return false, fmt.Errorf("%w: %s has no arguments", ErrArgumentType, m.Address)
	}
	return m.Args[0].Bool()
}
