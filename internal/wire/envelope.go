// Package wire implements the fixed-size envelope exchanged between clients
// and the server over a plain TCP stream.
//
// Every frame is exactly EnvelopeSize bytes:
//
//	offset  size  field
//	0       4     message type (int32)
//	4       256   user id (NUL padded)
//	260     256   session id (NUL padded)
//	516     2048  data (NUL padded)
//	2564    4     data length (int32)
//	2568    4     status code (int32)
//
// Integers are little-endian. There is no length prefix or delimiter, which
// keeps framing trivial but caps every payload at DataFieldSize-1 bytes.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	TextFieldSize = 256
	DataFieldSize = 2048

	offType      = 0
	offUserID    = offType + 4
	offSessionID = offUserID + TextFieldSize
	offData      = offSessionID + TextFieldSize
	offDataLen   = offData + DataFieldSize
	offStatus    = offDataLen + 4

	EnvelopeSize = offStatus + 4
)

var (
	// ErrFraming means a frame was not exactly EnvelopeSize bytes. The stream
	// can no longer be trusted to be aligned on frame boundaries.
	ErrFraming = errors.New("framing error")

	// ErrFieldTooLong is returned by Encode when a text field does not fit
	// together with its NUL terminator.
	ErrFieldTooLong = errors.New("field too long")
)

var byteOrder = binary.LittleEndian

// Envelope is the decoded form of one frame.
type Envelope struct {
	Type       MessageType
	UserID     string
	SessionID  string
	Data       []byte
	DataLength int32
	Status     Status
}

// Text returns the meaningful part of Data as a string.
func (e *Envelope) Text() string {
	return string(e.Data)
}

// Decode parses one frame.
func Decode(raw []byte) (*Envelope, error) {
	if len(raw) != EnvelopeSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFraming, len(raw), EnvelopeSize)
	}

	e := &Envelope{
		Type:       MessageType(int32(byteOrder.Uint32(raw[offType:]))),
		UserID:     string(cstring(raw[offUserID:offSessionID])),
		SessionID:  string(cstring(raw[offSessionID:offData])),
		DataLength: int32(byteOrder.Uint32(raw[offDataLen:])),
		Status:     Status(int32(byteOrder.Uint32(raw[offStatus:]))),
	}

	data := cstring(raw[offData:offDataLen])
	// A sender may announce a shorter meaningful length than the
	// NUL-terminated text; trust whichever is smaller.
	if e.DataLength >= 0 && int(e.DataLength) < len(data) {
		data = data[:e.DataLength]
	}
	e.Data = bytes.Clone(data)

	return e, nil
}

// Encode serializes e into a new EnvelopeSize buffer. DataLength is always
// written as len(e.Data).
func Encode(e *Envelope) ([]byte, error) {
	if len(e.UserID) >= TextFieldSize {
		return nil, fmt.Errorf("%w: user id is %d bytes", ErrFieldTooLong, len(e.UserID))
	}
	if len(e.SessionID) >= TextFieldSize {
		return nil, fmt.Errorf("%w: session id is %d bytes", ErrFieldTooLong, len(e.SessionID))
	}
	if len(e.Data) >= DataFieldSize {
		return nil, fmt.Errorf("%w: data is %d bytes", ErrFieldTooLong, len(e.Data))
	}

	buf := make([]byte, EnvelopeSize)
	byteOrder.PutUint32(buf[offType:], uint32(e.Type))
	copy(buf[offUserID:offSessionID], e.UserID)
	copy(buf[offSessionID:offData], e.SessionID)
	copy(buf[offData:offDataLen], e.Data)
	byteOrder.PutUint32(buf[offDataLen:], uint32(int32(len(e.Data))))
	byteOrder.PutUint32(buf[offStatus:], uint32(e.Status))

	return buf, nil
}

// ReadEnvelope reads exactly one frame from r. io.EOF is returned untouched
// when the peer closed the stream on a frame boundary; a partial frame is
// reported as ErrFraming.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	buf := make([]byte, EnvelopeSize)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFraming, n, EnvelopeSize)
		}
		return nil, err
	}
	return Decode(buf)
}

// WriteEnvelope encodes e and writes the whole frame to w.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	buf, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func cstring(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
