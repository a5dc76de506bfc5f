package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes frames to an outbound byte stream as self-delimiting
// units. It performs no buffering of its own; callers that need
// low-latency delivery flush the underlying transport after each
// frame.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one frame. Control frames must carry a non-empty
// event name, since an empty name on the wire would be
// indistinguishable from a content frame.
func (e *Encoder) Encode(f Frame) error {
	var unit wireFrame
	switch f.Kind {
	case Content:
		unit = wireFrame{Content: f.Text}
	case Control:
		if f.Name == "" {
			return fmt.Errorf("control frame requires an event name")
		}
		unit = wireFrame{Event: f.Name, Content: f.Payload}
	default:
		return fmt.Errorf("unknown frame kind %d", f.Kind)
	}
	data, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("error marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("error writing frame: %w", err)
	}
	return nil
}

// EncodeContent writes a content delta frame.
func (e *Encoder) EncodeContent(text string) error {
	return e.Encode(ContentFrame(text))
}

// EncodeControl writes a named control event frame.
func (e *Encoder) EncodeControl(name, payload string) error {
	return e.Encode(ControlFrame(name, payload))
}
