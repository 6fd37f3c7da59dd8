package hcinfo

import (
	"errors"
	"fmt"
	"io"
	"time"

	"french_smart_meter/pkg/teleinfo"
)

var (
	// ErrMissingField means the frame decoded fine but lacks a group the
	// Heures Creuses snapshot requires. Wrapped with the field name.
	ErrMissingField = errors.New("hcinfo: missing field")

	// ErrPeriodeHorsPlan means the meter announced a tariff period that does
	// not belong to the Heures Creuses plan, e.g. a meter subscribed to the
	// Base option. The wire is fine; the plan assumption is not.
	ErrPeriodeHorsPlan = errors.New("hcinfo: periode outside the heures creuses plan")
)

// Read decodes the next frame from src and folds it into an HcInfo stamped
// with the current time. Frame-level errors pass through unchanged.
func Read(src io.ByteReader) (*HcInfo, error) {
	frame, err := teleinfo.NextFrame(src)
	if err != nil {
		return nil, err
	}
	return FromFrame(frame, time.Now())
}

// FromFrame folds one frame into an HcInfo stamped with at. The pass is a
// single forward walk: when a group repeats inside the frame the later value
// wins, the over-current group sets Alerte by its mere presence, and any
// group irrelevant to the plan is skipped. Returns ErrPeriodeHorsPlan for a
// period outside HC/HP and ErrMissingField when a mandatory group is absent.
func FromFrame(frame *teleinfo.Frame, at time.Time) (*HcInfo, error) {
	var acc accumulator
	for _, tag := range frame.Tags {
		if err := acc.fold(tag); err != nil {
			return nil, err
		}
	}
	return acc.finalize(at)
}

// accumulator holds one optional slot per mandatory field so that finalize
// can tell "absent" apart from a legitimate zero value.
type accumulator struct {
	periode *string
	hc      *int32
	hp      *int32
	iinst   *int32
	papp    *int32
	alerte  bool
}

func (a *accumulator) fold(tag teleinfo.Tag) error {
	switch t := tag.(type) {
	case teleinfo.Ptec:
		label, err := periodeLabel(t.Periode)
		if err != nil {
			return err
		}
		a.periode = &label
	case teleinfo.Hchc:
		a.hc = &t.IndexWh
	case teleinfo.Hchp:
		a.hp = &t.IndexWh
	case teleinfo.Iinst:
		a.iinst = &t.Amperes
	case teleinfo.Papp:
		a.papp = &t.Watts
	case teleinfo.Adps:
		a.alerte = true
	}
	return nil
}

func (a *accumulator) finalize(at time.Time) (*HcInfo, error) {
	periode, err := requiredString(a.periode, "periode")
	if err != nil {
		return nil, err
	}
	hc, err := requiredInt32(a.hc, "hc")
	if err != nil {
		return nil, err
	}
	hp, err := requiredInt32(a.hp, "hp")
	if err != nil {
		return nil, err
	}
	iinst, err := requiredInt32(a.iinst, "iinst")
	if err != nil {
		return nil, err
	}
	papp, err := requiredInt32(a.papp, "papp")
	if err != nil {
		return nil, err
	}
	return &HcInfo{
		Timestamp: at,
		Periode:   periode,
		HcIndexWh: hc,
		HpIndexWh: hp,
		IinstA:    iinst,
		PappW:     papp,
		Alerte:    a.alerte,
	}, nil
}

func periodeLabel(p teleinfo.PeriodeTarifaire) (string, error) {
	switch p.Kind {
	case teleinfo.PeriodeHeuresCreuses:
		return "HC", nil
	case teleinfo.PeriodeHeuresPleines:
		return "HP", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrPeriodeHorsPlan, p)
	}
}

func requiredString(v *string, name string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return *v, nil
}

func requiredInt32(v *int32, name string) (int32, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return *v, nil
}
