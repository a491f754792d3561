package apifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrDuplicateKey is returned when one JSON object holds the same key twice.
var ErrDuplicateKey = errors.New("apifile: duplicate object key")

type frame struct {
	object  bool
	keys    map[string]struct{}
	wantKey bool
	key     string // current key of an object
	index   int    // current element of an array
}

// CheckDuplicateKeys scans data token by token and fails on the first object
// holding a key twice. Plain decoding would keep the last value without
// notice. Malformed JSON is reported as a decoding error.
func CheckDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var stack []*frame
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		if top.object {
			top.wantKey = true
		} else {
			top.index++
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) > 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, &frame{object: true, keys: map[string]struct{}{}, wantKey: true})
			case '[':
				stack = append(stack, &frame{})
			default:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
			continue
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].wantKey {
				top := stack[n-1]
				if _, dup := top.keys[v]; dup {
					return fmt.Errorf("%w %q at %s", ErrDuplicateKey, v, pointerOf(stack))
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.wantKey = false
				continue
			}
		}
		valueDone()
	}
}

// pointerOf renders the location of the innermost container as a JSON Pointer.
func pointerOf(stack []*frame) string {
	var b strings.Builder
	for _, f := range stack[:len(stack)-1] {
		b.WriteByte('/')
		if f.object {
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(f.key, "~", "~0"), "/", "~1"))
		} else {
			b.WriteString(strconv.Itoa(f.index))
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
