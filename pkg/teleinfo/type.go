// Package teleinfo decodes the Teleinfo ("TIC", mode historique) stream that
// French residential meters emit on their user serial output. The stream is a
// repetition of frames; each frame carries information groups of the form
// LF <label> SP <value> SP <checksum> CR between an STX and an ETX byte.
// NextFrame resynchronizes on the next frame boundary and returns its groups
// as typed tags, so a caller can simply call it in a loop on a serial port.
package teleinfo

// Frame delimiters. The meter may also send EOT mid-stream when the
// transmission is interrupted, e.g. while a manual reading is in progress.
const (
	STX byte = 0x02 // start of frame
	ETX byte = 0x03 // end of frame
	EOT byte = 0x04 // transmission interrupted
)

const (
	lf        byte = 0x0A // opens an information group
	cr        byte = 0x0D // closes an information group
	separator byte = 0x20
)

// Tag is one decoded information group. The concrete types below form a
// closed set; groups with a label this package does not know decode to
// Unknown rather than failing, so newer meter firmware keeps decoding.
type Tag interface {
	tag()
}

// Adco is the meter's identification number (ADCO group).
type Adco struct {
	Address string
}

// Optarif is the subscribed tariff option (OPTARIF group).
type Optarif struct {
	Option OptionTarifaire
}

// Isousc is the subscribed current limit in amperes (ISOUSC group).
type Isousc struct {
	Amperes int32
}

// Base is the single-rate index counter in Wh (BASE group).
type Base struct {
	IndexWh int32
}

// Hchc is the off-peak index counter in Wh (HCHC group).
type Hchc struct {
	IndexWh int32
}

// Hchp is the peak index counter in Wh (HCHP group).
type Hchp struct {
	IndexWh int32
}

// Ptec is the tariff period currently in effect (PTEC group).
type Ptec struct {
	Periode PeriodeTarifaire
}

// Iinst is the instantaneous current in amperes (IINST group).
type Iinst struct {
	Amperes int32
}

// Adps warns that the subscribed current is being exceeded (ADPS group).
// The meter only emits it while the overrun lasts, so its presence in a
// frame is the alert itself.
type Adps struct {
	Amperes int32
}

// Imax is the maximum current ever drawn, in amperes (IMAX group).
type Imax struct {
	Amperes int32
}

// Papp is the apparent power in watts (PAPP group).
type Papp struct {
	Watts int32
}

// Hhphc is the peak/off-peak schedule code (HHPHC group).
type Hhphc struct {
	Schedule byte
}

// Motdetat is the meter's raw status word (MOTDETAT group).
type Motdetat struct {
	Status string
}

// Unknown holds any group whose label is not part of the known set.
type Unknown struct {
	Label string
	Value string
}

func (Adco) tag()     {}
func (Optarif) tag()  {}
func (Isousc) tag()   {}
func (Base) tag()     {}
func (Hchc) tag()     {}
func (Hchp) tag()     {}
func (Ptec) tag()     {}
func (Iinst) tag()    {}
func (Adps) tag()     {}
func (Imax) tag()     {}
func (Papp) tag()     {}
func (Hhphc) tag()    {}
func (Motdetat) tag() {}
func (Unknown) tag()  {}

// OptionTarifaireKind enumerates the tariff options a meter can announce.
type OptionTarifaireKind uint8

const (
	OptionUnknown OptionTarifaireKind = iota
	OptionBase
	OptionHeuresCreuses
	OptionEJP
)

// OptionTarifaire is the subscribed tariff option. Raw keeps the original
// wire literal when the option is not one of the known kinds.
type OptionTarifaire struct {
	Kind OptionTarifaireKind
	Raw  string
}

func (o OptionTarifaire) String() string {
	switch o.Kind {
	case OptionBase:
		return "Base"
	case OptionHeuresCreuses:
		return "HC"
	case OptionEJP:
		return "EJP"
	default:
		return o.Raw
	}
}

// PeriodeTarifaireKind enumerates the tariff periods a meter can announce.
type PeriodeTarifaireKind uint8

const (
	PeriodeUnknown PeriodeTarifaireKind = iota
	PeriodeToutesHeures
	PeriodeHeuresCreuses
	PeriodeHeuresPleines
)

// PeriodeTarifaire is the tariff period in effect. Raw keeps the original
// wire literal when the period is not one of the known kinds.
type PeriodeTarifaire struct {
	Kind PeriodeTarifaireKind
	Raw  string
}

func (p PeriodeTarifaire) String() string {
	switch p.Kind {
	case PeriodeToutesHeures:
		return "TH"
	case PeriodeHeuresCreuses:
		return "HC"
	case PeriodeHeuresPleines:
		return "HP"
	default:
		return p.Raw
	}
}

// Frame is one complete transmission unit: the information groups received
// between a start and an end marker, in meter order. Duplicate labels are
// kept as-is.
type Frame struct {
	Tags []Tag
}
