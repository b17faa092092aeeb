// Package codec reads and writes xml messages framed as RFC6242 requires.
package codec

import (
	"encoding/xml"
	"io"

	"github.com/damianoneill/net/netconf/rfc6242"
)

// Decoder delivers the xml tokens of the framed messages read from its source.
type Decoder struct {
	*xml.Decoder
	framing *rfc6242.Decoder
}

// Encoder writes values as framed messages.
type Encoder struct {
	framing *rfc6242.Encoder
	xml     *xml.Encoder
}

// NewDecoder delivers a decoder of the messages read from r, initially end-of-message framed.
func NewDecoder(r io.Reader) *Decoder {
	framing := rfc6242.NewDecoder(r)
	return &Decoder{Decoder: xml.NewDecoder(framing), framing: framing}
}

// NewEncoder delivers an encoder of messages written to w, initially end-of-message framed.
func NewEncoder(w io.Writer) *Encoder {
	framing := rfc6242.NewEncoder(w)
	return &Encoder{framing: framing, xml: xml.NewEncoder(framing)}
}

// Encode writes v as one message, preceded by the xml declaration.
func (e *Encoder) Encode(v interface{}) error {
	if _, err := io.WriteString(e.framing, xml.Header); err != nil {
		return err
	}
	if err := e.xml.Encode(v); err != nil {
		return err
	}
	return e.framing.EndOfMessage()
}

// Chunked reports whether messages are written with chunked framing.
func (e *Encoder) Chunked() bool {
	return e.framing.ChunkedFraming
}

// UpgradeFraming switches d and e to chunked framing, once both peers have advertised base:1.1.
func UpgradeFraming(d *Decoder, e *Encoder) {
	rfc6242.SetChunkedFraming(d.framing, e.framing)
}
