package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"fall-monitor/internal/posture"
)

// MaxMessageSize bounds a single wire message.
const MaxMessageSize = 16 << 20

// Message is one unit of the sidecar wire protocol: a 4-byte big-endian
// length followed by a msgpack map. Landmarks is absent when no person was
// detected; Error is set when the camera read failed.
type Message struct {
	Seq       uint64              `msgpack:"seq"`
	Image     []byte              `msgpack:"image"`
	Landmarks posture.LandmarkSet `msgpack:"landmarks,omitempty"`
	Error     string              `msgpack:"error,omitempty"`
}

// Decoder reads length-prefixed messages.
type Decoder struct {
	r      io.Reader
	lenBuf [4]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next message. It returns io.EOF only at a clean message
// boundary; a stream cut mid-message yields io.ErrUnexpectedEOF.
func (d *Decoder) Decode() (Message, error) {
	if _, err := io.ReadFull(d.r, d.lenBuf[:]); err != nil {
		return Message{}, err
	}
	n := binary.BigEndian.Uint32(d.lenBuf[:])
	if n > MaxMessageSize {
		return Message{}, fmt.Errorf("message of %d bytes exceeds limit", n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}

	var m Message
	if err := msgpack.Unmarshal(buf, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return m, nil
}

// Encoder writes length-prefixed messages. Used to record replay files.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes m as one framed message.
func (e *Encoder) Encode(m Message) error {
	body, err := msgpack.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(body) > MaxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit", len(body))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := e.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = e.w.Write(body)
	return err
}
