package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize bounds how many bytes the decoder will buffer while
// waiting for a single unit to complete. A unit that grows past this
// without a delimiter is malformed.
const MaxFrameSize = 1 << 20

var dataPrefix = []byte("data: ")

// Decoder reads frames from an inbound byte stream. It is stateful:
// a unit boundary need not align with a single underlying read, so
// incomplete trailing data is buffered across reads.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	r    io.Reader
	buf  []byte
	read []byte
	err  error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:    r,
		read: make([]byte, 4096),
	}
}

// Next returns the next frame in the stream. It returns io.EOF when
// the stream closes cleanly on a unit boundary, io.ErrUnexpectedEOF
// when it closes mid-unit, and ErrMalformedFrame (possibly wrapped)
// when a unit cannot be parsed. All errors are sticky and fatal.
func (d *Decoder) Next() (Frame, error) {
	if d.err != nil {
		return Frame{}, d.err
	}
	f, err := d.next()
	if err != nil {
		d.err = err
	}
	return f, err
}

func (d *Decoder) next() (Frame, error) {
	for {
		// Drain any complete lines already buffered.
		for {
			idx := bytes.IndexByte(d.buf, '\n')
			if idx < 0 {
				break
			}
			line := d.buf[:idx]
			d.buf = d.buf[idx+1:]
			frame, ok, err := parseLine(line)
			if err != nil {
				return Frame{}, err
			}
			if ok {
				return frame, nil
			}
		}

		if len(d.buf) > MaxFrameSize {
			return Frame{}, fmt.Errorf("%w: unit exceeds %d bytes", ErrMalformedFrame, MaxFrameSize)
		}

		n, err := d.r.Read(d.read)
		if n > 0 {
			d.buf = append(d.buf, d.read[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				if len(bytes.TrimSpace(d.buf)) > 0 {
					// The stream was cut inside a unit.
					return Frame{}, io.ErrUnexpectedEOF
				}
				return Frame{}, io.EOF
			}
			return Frame{}, err
		}
	}
}

// parseLine decodes a single line. Blank separator lines yield no
// frame. Anything else must be a "data: " unit carrying a JSON
// object.
func parseLine(line []byte) (Frame, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Frame{}, false, nil
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		return Frame{}, false, fmt.Errorf("%w: missing data prefix", ErrMalformedFrame)
	}
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))

	var unit wireFrame
	if err := json.Unmarshal(payload, &unit); err != nil {
		return Frame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if unit.Event != "" {
		return ControlFrame(unit.Event, unit.Content), true, nil
	}
	return ContentFrame(unit.Content), true, nil
}
