package scene

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// valueReader yields the scalar values of a PLY body one at a time.
type valueReader interface {
	next(t Type) (float64, error)
}

func newValueReader(r *bufio.Reader, f Format) valueReader {
	switch f {
	case FormatBinaryLE:
		return &binaryReader{r: r, order: binary.LittleEndian}
	case FormatBinaryBE:
		return &binaryReader{r: r, order: binary.BigEndian}
	default:
		return &asciiReader{r: r}
	}
}

type binaryReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) next(t Type) (float64, error) {
	n := t.Size()
	if n == 0 {
		return 0, fmt.Errorf("%w: unsupported type %q", ErrInvalidPLY, t)
	}
	if _, err := io.ReadFull(b.r, b.buf[:n]); err != nil {
		return 0, truncated(err)
	}
	p := b.buf[:n]
	switch t {
	case TypeInt8:
		return float64(int8(p[0])), nil
	case TypeUint8:
		return float64(p[0]), nil
	case TypeInt16:
		return float64(int16(b.order.Uint16(p))), nil
	case TypeUint16:
		return float64(b.order.Uint16(p)), nil
	case TypeInt32:
		return float64(int32(b.order.Uint32(p))), nil
	case TypeUint32:
		return float64(b.order.Uint32(p)), nil
	case TypeFloat32:
		return float64(math.Float32frombits(b.order.Uint32(p))), nil
	default:
		return math.Float64frombits(b.order.Uint64(p)), nil
	}
}

// asciiReader reads whitespace-separated tokens. Line structure is not
// enforced: PLY ascii bodies put one element per line, but the token
// stream alone determines the values.
type asciiReader struct {
	r *bufio.Reader
}

func (a *asciiReader) next(t Type) (float64, error) {
	tok, err := a.token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s value %q", ErrInvalidPLY, t, tok)
	}
	return v, nil
}

func (a *asciiReader) token() (string, error) {
	var tok []byte
	for {
		c, err := a.r.ReadByte()
		if err != nil {
			if len(tok) > 0 && errors.Is(err, io.EOF) {
				return string(tok), nil
			}
			return "", truncated(err)
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

// readRecord reads one element record into row, one value per property.
// List properties are consumed and recorded as their item count.
func readRecord(vr valueReader, e *Element, row []float64) error {
	for i, p := range e.Properties {
		if !p.List {
			v, err := vr.next(p.Type)
			if err != nil {
				return err
			}
			row[i] = v
			continue
		}

		n, err := vr.next(p.CountType)
		if err != nil {
			return err
		}
		if n < 0 || n != math.Trunc(n) {
			return fmt.Errorf("%w: bad list length %v in %s.%s", ErrInvalidPLY, n, e.Name, p.Name)
		}
		for j := 0; j < int(n); j++ {
			if _, err := vr.next(p.Type); err != nil {
				return err
			}
		}
		row[i] = n
	}
	return nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: body is truncated", ErrInvalidPLY)
	}
	return err
}
