// Package capture records raw meter output to a file and replays it later,
// so a decoding problem seen in the field can be reproduced on a workstation
// without the meter. Each record holds the bytes of one frame as they came
// off the serial port, wrapped in a small length+CRC envelope.
package capture

import (
	"errors"
	"io"

	"github.com/sigurn/crc16"
)

// MaxRecordBytes bounds one record's payload. A mode historique frame is a
// few hundred bytes; anything near this limit means the capture is garbage.
const MaxRecordBytes = 4096

var (
	ErrRecordTooLarge = errors.New("capture: record exceeds maximum size")
	ErrCorruptRecord  = errors.New("capture: record failed crc check")
	ErrTruncated      = errors.New("capture: truncated record")
)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Writer appends records to a capture stream.
type Writer struct {
	w io.Writer
}

// Reader walks the records of a capture stream in order.
type Reader struct {
	r io.Reader
}

// ReplaySource feeds the payload bytes of a capture stream one at a time,
// so a recorded session can be handed to the frame decoder in place of a
// live serial port.
type ReplaySource struct {
	r   *Reader
	buf []byte
	off int
}
