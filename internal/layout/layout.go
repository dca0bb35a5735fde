// =============================
// File: internal/layout/layout.go
// =============================
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Field describes one fixed-size slot in an on-chain account layout.
type Field struct {
	Name     string
	Size     int
	Validate func(raw []byte) error
	Decode   func(raw []byte) interface{}
}

// Layout is an ordered list of fields decoded sequentially from offset 0.
type Layout struct {
	fields []Field
	size   int
}

// Record holds decoded field values keyed by field name.
type Record struct {
	values map[string]interface{}
}

// New builds a layout; field order defines byte order.
func New(fields ...Field) *Layout {
	l := &Layout{fields: fields}
	for _, f := range fields {
		l.size += f.Size
	}
	return l
}

// Size returns the minimum account data length this layout requires.
func (l *Layout) Size() int { return l.size }

// Offset returns the byte offset of a named field, for memcmp filters.
func (l *Layout) Offset(name string) (int, error) {
	off := 0
	for _, f := range l.fields {
		if f.Name == name {
			return off, nil
		}
		off += f.Size
	}
	return 0, fmt.Errorf("layout: unknown field %q", name)
}

// Decode walks the fields in order, bounds-checking before every read.
func (l *Layout) Decode(data []byte) (*Record, error) {
	rec := &Record{values: make(map[string]interface{}, len(l.fields))}
	off := 0
	for _, f := range l.fields {
		if off+f.Size > len(data) {
			return nil, fmt.Errorf("layout: buffer overflow reading %q at offset %d: need %d bytes, have %d",
				f.Name, off, f.Size, len(data)-off)
		}
		raw := data[off : off+f.Size]
		if f.Validate != nil {
			if err := f.Validate(raw); err != nil {
				return nil, fmt.Errorf("layout: field %q at offset %d: %w", f.Name, off, err)
			}
		}
		if f.Decode != nil {
			rec.values[f.Name] = f.Decode(raw)
		}
		off += f.Size
	}
	return rec, nil
}

// U64 returns a u64 field value; zero if absent or mistyped.
func (r *Record) U64(name string) uint64 {
	v, _ := r.values[name].(uint64)
	return v
}

func (r *Record) U32(name string) uint32 {
	v, _ := r.values[name].(uint32)
	return v
}

func (r *Record) U16(name string) uint16 {
	v, _ := r.values[name].(uint16)
	return v
}

func (r *Record) U8(name string) uint8 {
	v, _ := r.values[name].(uint8)
	return v
}

func (r *Record) Bool(name string) bool {
	v, _ := r.values[name].(bool)
	return v
}

func (r *Record) PublicKey(name string) solana.PublicKey {
	v, _ := r.values[name].(solana.PublicKey)
	return v
}

// U64LE declares an 8-byte little-endian unsigned integer.
func U64LE(name string) Field {
	return Field{
		Name: name,
		Size: 8,
		Decode: func(raw []byte) interface{} {
			return binary.LittleEndian.Uint64(raw)
		},
	}
}

func U32LE(name string) Field {
	return Field{
		Name: name,
		Size: 4,
		Decode: func(raw []byte) interface{} {
			return binary.LittleEndian.Uint32(raw)
		},
	}
}

func U16LE(name string) Field {
	return Field{
		Name: name,
		Size: 2,
		Decode: func(raw []byte) interface{} {
			return binary.LittleEndian.Uint16(raw)
		},
	}
}

func U8(name string) Field {
	return Field{
		Name: name,
		Size: 1,
		Decode: func(raw []byte) interface{} {
			return raw[0]
		},
	}
}

// Bool declares a single-byte flag; any nonzero byte reads as true.
func Bool(name string) Field {
	return Field{
		Name: name,
		Size: 1,
		Decode: func(raw []byte) interface{} {
			return raw[0] != 0
		},
	}
}

// PublicKey declares a 32-byte ed25519 public key.
func PublicKey(name string) Field {
	return Field{
		Name: name,
		Size: 32,
		Decode: func(raw []byte) interface{} {
			return solana.PublicKeyFromBytes(raw)
		},
	}
}

// Discriminator declares the 8-byte Anchor account header and rejects
// data whose header does not match.
func Discriminator(name string, want []byte) Field {
	return Field{
		Name: name,
		Size: 8,
		Validate: func(raw []byte) error {
			if !bytes.Equal(raw, want) {
				return fmt.Errorf("header mismatch: got %x, want %x", raw, want)
			}
			return nil
		},
	}
}

// Skip declares bytes that are checked for presence but never decoded.
func Skip(name string, size int) Field {
	return Field{Name: name, Size: size}
}
