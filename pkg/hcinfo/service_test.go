package hcinfo

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"french_smart_meter/pkg/teleinfo"
)

var captureTime = time.Date(2026, time.March, 14, 7, 30, 0, 0, time.UTC)

func hcFrame() *teleinfo.Frame {
	return &teleinfo.Frame{Tags: []teleinfo.Tag{
		teleinfo.Adco{Address: "123456789012"},
		teleinfo.Optarif{Option: teleinfo.OptionTarifaire{Kind: teleinfo.OptionHeuresCreuses}},
		teleinfo.Isousc{Amperes: 30},
		teleinfo.Hchc{IndexWh: 1234567},
		teleinfo.Hchp{IndexWh: 7654321},
		teleinfo.Ptec{Periode: teleinfo.PeriodeTarifaire{Kind: teleinfo.PeriodeHeuresCreuses}},
		teleinfo.Iinst{Amperes: 2},
		teleinfo.Imax{Amperes: 42},
		teleinfo.Papp{Watts: 380},
		teleinfo.Hhphc{Schedule: 'A'},
		teleinfo.Motdetat{Status: "000000"},
	}}
}

func TestFromFrame(t *testing.T) {
	info, err := FromFrame(hcFrame(), captureTime)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if !info.Timestamp.Equal(captureTime) {
		t.Errorf("Timestamp = %v, want %v", info.Timestamp, captureTime)
	}
	if info.Periode != "HC" {
		t.Errorf("Periode = %q, want HC", info.Periode)
	}
	if info.HcIndexWh != 1234567 {
		t.Errorf("HcIndexWh = %d, want 1234567", info.HcIndexWh)
	}
	if info.HpIndexWh != 7654321 {
		t.Errorf("HpIndexWh = %d, want 7654321", info.HpIndexWh)
	}
	if info.IinstA != 2 {
		t.Errorf("IinstA = %d, want 2", info.IinstA)
	}
	if info.PappW != 380 {
		t.Errorf("PappW = %d, want 380", info.PappW)
	}
	if info.Alerte {
		t.Error("Alerte = true without an over-current group")
	}
}

func TestFromFramePeriodeHeuresPleines(t *testing.T) {
	frame := hcFrame()
	frame.Tags[5] = teleinfo.Ptec{Periode: teleinfo.PeriodeTarifaire{Kind: teleinfo.PeriodeHeuresPleines}}

	info, err := FromFrame(frame, captureTime)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if info.Periode != "HP" {
		t.Errorf("Periode = %q, want HP", info.Periode)
	}
}

func TestFromFrameMissingMandatoryField(t *testing.T) {
	mandatory := []struct {
		field string
		tag   teleinfo.Tag
	}{
		{"periode", teleinfo.Ptec{Periode: teleinfo.PeriodeTarifaire{Kind: teleinfo.PeriodeHeuresCreuses}}},
		{"hc", teleinfo.Hchc{IndexWh: 100}},
		{"hp", teleinfo.Hchp{IndexWh: 200}},
		{"iinst", teleinfo.Iinst{Amperes: 2}},
		{"papp", teleinfo.Papp{Watts: 380}},
	}
	for skip, c := range mandatory {
		t.Run("missing "+c.field, func(t *testing.T) {
			var tags []teleinfo.Tag
			for i, m := range mandatory {
				if i != skip {
					tags = append(tags, m.tag)
				}
			}
			info, err := FromFrame(&teleinfo.Frame{Tags: tags}, captureTime)
			if info != nil {
				t.Fatalf("got a record %+v despite missing %s", info, c.field)
			}
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("error = %v, want ErrMissingField", err)
			}
			if !strings.HasSuffix(err.Error(), ": "+c.field) {
				t.Fatalf("error %q does not name field %q", err, c.field)
			}
		})
	}
}

func TestFromFrameAlerte(t *testing.T) {
	frame := hcFrame()
	frame.Tags = append(frame.Tags, teleinfo.Adps{Amperes: 0})

	info, err := FromFrame(frame, captureTime)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if !info.Alerte {
		t.Error("Alerte = false despite over-current group present")
	}
}

func TestFromFrameLastWriteWins(t *testing.T) {
	frame := hcFrame()
	frame.Tags = append(frame.Tags,
		teleinfo.Hchc{IndexWh: 1234999},
		teleinfo.Papp{Watts: 420},
	)

	info, err := FromFrame(frame, captureTime)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if info.HcIndexWh != 1234999 {
		t.Errorf("HcIndexWh = %d, want the later value 1234999", info.HcIndexWh)
	}
	if info.PappW != 420 {
		t.Errorf("PappW = %d, want the later value 420", info.PappW)
	}
}

func TestFromFramePeriodeHorsPlan(t *testing.T) {
	cases := []struct {
		name    string
		periode teleinfo.PeriodeTarifaire
		literal string
	}{
		{"toutes heures", teleinfo.PeriodeTarifaire{Kind: teleinfo.PeriodeToutesHeures}, "TH"},
		{"unknown literal", teleinfo.PeriodeTarifaire{Kind: teleinfo.PeriodeUnknown, Raw: "HPJR"}, "HPJR"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame := hcFrame()
			frame.Tags[5] = teleinfo.Ptec{Periode: c.periode}

			_, err := FromFrame(frame, captureTime)
			if !errors.Is(err, ErrPeriodeHorsPlan) {
				t.Fatalf("error = %v, want ErrPeriodeHorsPlan", err)
			}
			if !strings.Contains(err.Error(), c.literal) {
				t.Fatalf("error %q does not name the period %q", err, c.literal)
			}
		})
	}
}

func wireGroup(label, value string) []byte {
	var b bytes.Buffer
	b.WriteByte(0x0A)
	b.WriteString(label)
	b.WriteByte(0x20)
	b.WriteString(value)
	b.WriteByte(0x20)
	b.WriteByte(teleinfo.Checksum(label, value))
	b.WriteByte(0x0D)
	return b.Bytes()
}

func TestReadFromWire(t *testing.T) {
	var input bytes.Buffer
	input.WriteByte(teleinfo.STX)
	input.Write(wireGroup("ADCO", "123456789012"))
	input.Write(wireGroup("OPTARIF", "HC.."))
	input.Write(wireGroup("HCHC", "1234567"))
	input.Write(wireGroup("HCHP", "7654321"))
	input.Write(wireGroup("PTEC", "HP.."))
	input.Write(wireGroup("IINST", "002"))
	input.Write(wireGroup("PAPP", "00380"))
	input.WriteByte(teleinfo.ETX)

	before := time.Now()
	info, err := Read(bytes.NewReader(input.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if info.Periode != "HP" || info.HcIndexWh != 1234567 || info.HpIndexWh != 7654321 ||
		info.IinstA != 2 || info.PappW != 380 || info.Alerte {
		t.Fatalf("unexpected record %+v", info)
	}
	if info.Timestamp.Before(before) || info.Timestamp.After(time.Now()) {
		t.Errorf("Timestamp %v not stamped at read time", info.Timestamp)
	}
}

func TestReadPassesFrameErrorsThrough(t *testing.T) {
	_, err := Read(bytes.NewReader(nil))
	if !errors.Is(err, teleinfo.ErrEndOfInput) {
		t.Fatalf("error = %v, want teleinfo.ErrEndOfInput", err)
	}
}

func TestJsonRoundTrip(t *testing.T) {
	info, err := FromFrame(hcFrame(), captureTime)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}

	got := HcInfoFromJsonBytes(info.ToJsonBytes())
	if got == nil {
		t.Fatal("HcInfoFromJsonBytes returned nil for valid payload")
	}
	if !got.Timestamp.Equal(info.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, info.Timestamp)
	}
	if got.Periode != info.Periode || got.HcIndexWh != info.HcIndexWh ||
		got.HpIndexWh != info.HpIndexWh || got.IinstA != info.IinstA ||
		got.PappW != info.PappW || got.Alerte != info.Alerte {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, info)
	}

	if HcInfoFromJsonBytes([]byte("{not json")) != nil {
		t.Error("HcInfoFromJsonBytes accepted malformed payload")
	}
}
