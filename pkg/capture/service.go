package capture

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/sigurn/crc16"
)

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord appends one record: 2-byte big-endian payload length, the
// payload, then the CRC16/ARC of the payload.
func (w *Writer) WriteRecord(payload []byte) error {
	if len(payload) > MaxRecordBytes {
		return ErrRecordTooLarge
	}

	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))
	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return err
		}
	}

	var sum [2]byte
	binary.BigEndian.PutUint16(sum[:], crc16.Checksum(payload, crcTable))
	if _, err := w.w.Write(sum[:]); err != nil {
		return err
	}
	return nil
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadRecord returns the next payload, verifying its CRC. io.EOF marks a
// clean end of the stream; a stream that stops mid-record is ErrTruncated.
func (r *Reader) ReadRecord() ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	length := binary.BigEndian.Uint16(header[:])
	if length > MaxRecordBytes {
		return nil, ErrRecordTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	var sum [2]byte
	if _, err := io.ReadFull(r.r, sum[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	if crc16.Checksum(payload, crcTable) != binary.BigEndian.Uint16(sum[:]) {
		return nil, ErrCorruptRecord
	}
	return payload, nil
}

func NewReplaySource(r io.Reader) *ReplaySource {
	return &ReplaySource{r: NewReader(r)}
}

// ReadByte yields the payload bytes of every record in order. At the end of
// the stream it returns io.EOF like any drained byte source.
func (s *ReplaySource) ReadByte() (byte, error) {
	for s.off >= len(s.buf) {
		payload, err := s.r.ReadRecord()
		if err != nil {
			return 0, err
		}
		s.buf = payload
		s.off = 0
	}
	b := s.buf[s.off]
	s.off++
	return b, nil
}
