package record

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MaxDepth bounds array/object nesting in a document. It matches the limit
// encoding/json enforces, so both formats accept the same documents.
const MaxDepth = 10000

// ErrTooDeep is returned for documents nested deeper than MaxDepth.
var ErrTooDeep = errors.New("document nested too deeply")

// checkMsgpackDepth walks the first value in data without recursion and
// fails once containers nest deeper than MaxDepth. The msgpack decoder
// recurses per level, so this must run before it.
func checkMsgpackDepth(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	// pending[i] is the number of values still to read at depth i
	pending := []int{1}
	for len(pending) > 0 {
		top := len(pending) - 1
		if pending[top] == 0 {
			pending = pending[:top]
			continue
		}
		pending[top]--

		c, err := dec.PeekCode()
		if err != nil {
			return err
		}
		n := 0
		switch {
		case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
			n, err = dec.DecodeArrayLen()
		case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
			n, err = dec.DecodeMapLen()
			n *= 2 // keys and values
		default:
			err = dec.Skip()
		}
		if err != nil {
			return err
		}
		if n > 0 {
			if len(pending) > MaxDepth {
				return fmt.Errorf("%w (limit %d)", ErrTooDeep, MaxDepth)
			}
			pending = append(pending, n)
		}
	}
	return nil
}
