package teleinfo

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrEndOfInput means the byte source ran out before a full frame was read.
	ErrEndOfInput = errors.New("teleinfo: end of input")

	// ErrTransmissionAborted means the meter sent EOT, which it does when the
	// stream is interrupted mid-frame. Callers can keep reading; the next
	// NextFrame call resynchronizes on the following frame.
	ErrTransmissionAborted = errors.New("teleinfo: transmission aborted")

	// ErrChecksumMismatch means an information group arrived corrupted.
	ErrChecksumMismatch = errors.New("teleinfo: checksum mismatch")

	// ErrFrameSyntax means the stream did not follow the frame grammar.
	ErrFrameSyntax = errors.New("teleinfo: malformed frame")
)

// NextFrame reads from src until it has decoded one complete frame.
//
// Bytes before the next start-of-frame marker are discarded, so src may be
// joined mid-stream (a serial port opened at an arbitrary moment) and the
// first partial frame is skipped automatically. Every information group in
// the frame is checksum-verified and decoded to its Tag type.
//
// Errors are ErrEndOfInput, ErrTransmissionAborted, ErrChecksumMismatch,
// ErrFrameSyntax (the latter two wrapped with detail), or a wrapped read
// error from src. After ErrTransmissionAborted or a decode error the caller
// may call NextFrame again; it will hunt for the next frame start.
func NextFrame(src io.ByteReader) (*Frame, error) {
	if err := skipToFrameStart(src); err != nil {
		return nil, err
	}
	return readFrame(src)
}

// readByte fetches one byte and maps stream-level conditions to this
// package's errors. EOT is surfaced as ErrTransmissionAborted no matter
// where in the frame it shows up.
func readByte(src io.ByteReader) (byte, error) {
	b, err := src.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, ErrEndOfInput
		}
		return 0, fmt.Errorf("teleinfo: read: %w", err)
	}
	if b == EOT {
		return 0, ErrTransmissionAborted
	}
	return b, nil
}

func skipToFrameStart(src io.ByteReader) error {
	for {
		b, err := readByte(src)
		if err != nil {
			return err
		}
		if b == STX {
			return nil
		}
	}
}

func readFrame(src io.ByteReader) (*Frame, error) {
	frame := &Frame{}
	for {
		b, err := readByte(src)
		if err != nil {
			return nil, err
		}
		switch b {
		case ETX:
			return frame, nil
		case lf:
			tag, err := readGroup(src)
			if err != nil {
				return nil, err
			}
			frame.Tags = append(frame.Tags, tag)
		default:
			return nil, fmt.Errorf("%w: expected group start or end of frame, got 0x%02X", ErrFrameSyntax, b)
		}
	}
}

// readGroup decodes one information group, the LF having already been
// consumed: label SP value SP checksum CR. The checksum byte is read raw
// because its range includes the separator itself.
func readGroup(src io.ByteReader) (Tag, error) {
	label, err := readField(src)
	if err != nil {
		return nil, err
	}
	value, err := readField(src)
	if err != nil {
		return nil, err
	}
	sum, err := readByte(src)
	if err != nil {
		return nil, err
	}
	if want := Checksum(label, value); sum != want {
		return nil, fmt.Errorf("%w: group %q has 0x%02X, computed 0x%02X", ErrChecksumMismatch, label, sum, want)
	}
	tag, err := parseTag(label, value)
	if err != nil {
		return nil, err
	}
	if err := expectByte(src, cr); err != nil {
		return nil, err
	}
	return tag, nil
}

// readField accumulates bytes up to the next separator, which is consumed.
func readField(src io.ByteReader) (string, error) {
	var field strings.Builder
	for {
		b, err := readByte(src)
		if err != nil {
			return "", err
		}
		if b == separator {
			return field.String(), nil
		}
		field.WriteByte(b)
	}
}

func expectByte(src io.ByteReader, want byte) error {
	b, err := readByte(src)
	if err != nil {
		return err
	}
	if b != want {
		return fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrFrameSyntax, want, b)
	}
	return nil
}

// Checksum computes the mode historique group checksum: the byte sum of the
// label, the separator between label and value, and the value, truncated to
// six bits and offset into the printable range.
func Checksum(label, value string) byte {
	var sum byte
	for i := 0; i < len(label); i++ {
		sum += label[i]
	}
	sum += separator
	for i := 0; i < len(value); i++ {
		sum += value[i]
	}
	return (sum & 0x3F) + separator
}

func parseTag(label, value string) (Tag, error) {
	switch label {
	case "ADCO":
		return Adco{Address: value}, nil
	case "OPTARIF":
		return Optarif{Option: parseOptionTarifaire(value)}, nil
	case "ISOUSC":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Isousc{Amperes: n}, nil
	case "BASE":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Base{IndexWh: n}, nil
	case "HCHC":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Hchc{IndexWh: n}, nil
	case "HCHP":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Hchp{IndexWh: n}, nil
	case "PTEC":
		return Ptec{Periode: parsePeriodeTarifaire(value)}, nil
	case "IINST":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Iinst{Amperes: n}, nil
	case "ADPS":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Adps{Amperes: n}, nil
	case "IMAX":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Imax{Amperes: n}, nil
	case "PAPP":
		n, err := parseInt32(label, value)
		if err != nil {
			return nil, err
		}
		return Papp{Watts: n}, nil
	case "HHPHC":
		if len(value) == 0 {
			return nil, fmt.Errorf("%w: HHPHC group has empty value", ErrFrameSyntax)
		}
		return Hhphc{Schedule: value[0]}, nil
	case "MOTDETAT":
		return Motdetat{Status: value}, nil
	default:
		return Unknown{Label: label, Value: value}, nil
	}
}

func parseInt32(label, value string) (int32, error) {
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q is not a number", ErrFrameSyntax, label, value)
	}
	return int32(n), nil
}

func parseOptionTarifaire(value string) OptionTarifaire {
	switch value {
	case "Base":
		return OptionTarifaire{Kind: OptionBase}
	case "HC..":
		return OptionTarifaire{Kind: OptionHeuresCreuses}
	case "EJP.":
		return OptionTarifaire{Kind: OptionEJP}
	default:
		return OptionTarifaire{Kind: OptionUnknown, Raw: value}
	}
}

func parsePeriodeTarifaire(value string) PeriodeTarifaire {
	switch value {
	case "TH..":
		return PeriodeTarifaire{Kind: PeriodeToutesHeures}
	case "HC..":
		return PeriodeTarifaire{Kind: PeriodeHeuresCreuses}
	case "HP..":
		return PeriodeTarifaire{Kind: PeriodeHeuresPleines}
	default:
		return PeriodeTarifaire{Kind: PeriodeUnknown, Raw: value}
	}
}
