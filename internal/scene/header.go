package scene

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPLY is wrapped by every error caused by malformed input.
var ErrInvalidPLY = errors.New("invalid PLY file")

// maxHeaderSize bounds how much is read while looking for end_header.
const maxHeaderSize = 1 << 20

// Format is the PLY body encoding.
type Format string

const (
	FormatASCII    Format = "ascii"
	FormatBinaryLE Format = "binary_little_endian"
	FormatBinaryBE Format = "binary_big_endian"
)

// Type is a PLY scalar type.
type Type string

const (
	TypeInt8    Type = "char"
	TypeUint8   Type = "uchar"
	TypeInt16   Type = "short"
	TypeUint16  Type = "ushort"
	TypeInt32   Type = "int"
	TypeUint32  Type = "uint"
	TypeFloat32 Type = "float"
	TypeFloat64 Type = "double"
)

// typeAliases maps the sized spellings onto the classic names.
var typeAliases = map[string]Type{
	"char": TypeInt8, "int8": TypeInt8,
	"uchar": TypeUint8, "uint8": TypeUint8,
	"short": TypeInt16, "int16": TypeInt16,
	"ushort": TypeUint16, "uint16": TypeUint16,
	"int": TypeInt32, "int32": TypeInt32,
	"uint": TypeUint32, "uint32": TypeUint32,
	"float": TypeFloat32, "float32": TypeFloat32,
	"double": TypeFloat64, "float64": TypeFloat64,
}

// Size returns the encoded size of t in bytes.
func (t Type) Size() int {
	switch t {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeFloat64:
		return 8
	default:
		return 0
	}
}

// Property is one column of an element.
type Property struct {
	Name string `json:"name"`
	Type Type   `json:"type"`

	// List properties carry a count of CountType followed by that many
	// values of Type.
	List      bool `json:"list,omitempty"`
	CountType Type `json:"countType,omitempty"`
}

// Element is one record kind of the body, e.g. "vertex" or "chunk".
type Element struct {
	Name       string     `json:"name"`
	Count      int        `json:"count"`
	Properties []Property `json:"properties"`
}

// Index returns the position of the named property, or -1.
func (e *Element) Index(name string) int {
	for i, p := range e.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Header is the parsed PLY header.
type Header struct {
	Format   Format    `json:"format"`
	Version  string    `json:"version"`
	Comments []string  `json:"comments,omitempty"`
	Elements []Element `json:"elements"`

	// Size is the byte length of the header including the end_header line.
	Size int64 `json:"size"`
}

// Element returns the named element, or nil.
func (h *Header) Element(name string) *Element {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// ReadHeader parses the header from r, leaving r positioned at the first
// byte of the body.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	h := &Header{}
	current := -1
	sawFormat := false

	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadString('\n')
		h.Size += int64(len(line))
		if err != nil && strings.TrimSpace(line) != "end_header" {
			return nil, fmt.Errorf("%w: missing end_header", ErrInvalidPLY)
		}
		if h.Size > maxHeaderSize {
			return nil, fmt.Errorf("%w: header larger than %d bytes", ErrInvalidPLY, maxHeaderSize)
		}

		fields := strings.Fields(line)
		if lineNo == 1 {
			if len(fields) != 1 || fields[0] != "ply" {
				return nil, fmt.Errorf("%w: missing ply magic", ErrInvalidPLY)
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: malformed format line", ErrInvalidPLY, lineNo)
			}
			switch f := Format(fields[1]); f {
			case FormatASCII, FormatBinaryLE, FormatBinaryBE:
				h.Format = f
			default:
				return nil, fmt.Errorf("%w: line %d: unknown format %q", ErrInvalidPLY, lineNo, fields[1])
			}
			h.Version = fields[2]
			sawFormat = true

		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: malformed element line", ErrInvalidPLY, lineNo)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: line %d: bad element count %q", ErrInvalidPLY, lineNo, fields[2])
			}
			h.Elements = append(h.Elements, Element{Name: fields[1], Count: n})
			current = len(h.Elements) - 1

		case "property":
			if current < 0 {
				return nil, fmt.Errorf("%w: line %d: property before any element", ErrInvalidPLY, lineNo)
			}
			p, err := parseProperty(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidPLY, lineNo, err)
			}
			h.Elements[current].Properties = append(h.Elements[current].Properties, p)

		case "end_header":
			if !sawFormat {
				return nil, fmt.Errorf("%w: missing format line", ErrInvalidPLY)
			}
			return h, nil

		default:
			return nil, fmt.Errorf("%w: line %d: unexpected keyword %q", ErrInvalidPLY, lineNo, fields[0])
		}
	}
}

func parseProperty(fields []string) (Property, error) {
	if len(fields) >= 1 && fields[0] == "list" {
		if len(fields) != 4 {
			return Property{}, fmt.Errorf("malformed list property")
		}
		ct, ok := typeAliases[fields[1]]
		if !ok {
			return Property{}, fmt.Errorf("unknown type %q", fields[1])
		}
		it, ok := typeAliases[fields[2]]
		if !ok {
			return Property{}, fmt.Errorf("unknown type %q", fields[2])
		}
		return Property{Name: fields[3], Type: it, List: true, CountType: ct}, nil
	}

	if len(fields) != 2 {
		return Property{}, fmt.Errorf("malformed property")
	}
	t, ok := typeAliases[fields[0]]
	if !ok {
		return Property{}, fmt.Errorf("unknown type %q", fields[0])
	}
	return Property{Name: fields[1], Type: t}, nil
}
