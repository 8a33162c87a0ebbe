package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects a document encoding.
type Format uint8

const (
	FormatAuto Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat parses a format name as used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp", "mpk":
		return FormatMsgpack, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q (want auto|json|msgpack)", s)
	}
}

// Detect guesses the encoding of data. IR documents are objects, so JSON
// starts with '{' after optional whitespace; anything else is MessagePack.
func Detect(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatMsgpack
}

// ErrTrailingData is returned when a document is followed by extra content.
var ErrTrailingData = errors.New("trailing data after document")

// Decode parses data in the given format.
func Decode(data []byte, f Format) (Value, error) {
	if f == FormatAuto {
		f = Detect(data)
	}
	switch f {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatMsgpack:
		return DecodeMsgpack(data)
	default:
		return Null, fmt.Errorf("unsupported format %s", f)
	}
}

// DecodeJSON parses a single JSON document. Integers keep full 64-bit
// precision.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null, fmt.Errorf("json: %w", ErrTrailingData)
	}
	n, err := fromJSON(raw)
	if err != nil {
		return Null, fmt.Errorf("json: %w", err)
	}
	return Value{v: n}, nil
}

func fromJSON(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return parseNumber(string(x))
	case []any:
		for i, e := range x {
			n, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	case map[string]any:
		for k, e := range x {
			n, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	default:
		return x, nil
	}
}

func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return normalizeUint(u), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return f, nil
}

// DecodeMsgpack parses a single MessagePack document. Nesting is limited to
// MaxDepth.
func DecodeMsgpack(data []byte) (Value, error) {
	if err := checkMsgpackDepth(data); err != nil {
		return Null, fmt.Errorf("msgpack: %w", err)
	}
	rd := bytes.NewReader(data)
	dec := msgpack.NewDecoder(rd)
	raw, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return Null, fmt.Errorf("msgpack: %w", err)
	}
	if rd.Len() != 0 {
		return Null, fmt.Errorf("msgpack: %w", ErrTrailingData)
	}
	v, err := Of(raw)
	if err != nil {
		return Null, fmt.Errorf("msgpack: %w", err)
	}
	return v, nil
}

// Encode writes v in the given format. Object keys are emitted in sorted
// order so output is reproducible.
func Encode(w io.Writer, v Value, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.v)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		return enc.Encode(v.v)
	default:
		return fmt.Errorf("unsupported output format %s", f)
	}
}
