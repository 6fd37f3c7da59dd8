package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/teleinfo"
)

func TestRegisterMetricsIdempotent(t *testing.T) {
	// A second registration must not panic.
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecordReadingSetsGauges(t *testing.T) {
	RecordReading(&hcinfo.HcInfo{
		Timestamp: time.Unix(1700000000, 0),
		Periode:   "HC",
		HcIndexWh: 1234567,
		HpIndexWh: 7654321,
		IinstA:    7,
		PappW:     1610,
		Alerte:    true,
	})

	if got := testutil.ToFloat64(pappWatts); got != 1610 {
		t.Errorf("papp gauge = %v, want 1610", got)
	}
	if got := testutil.ToFloat64(iinstAmperes); got != 7 {
		t.Errorf("iinst gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(indexHcWh); got != 1234567 {
		t.Errorf("hc index gauge = %v, want 1234567", got)
	}
	if got := testutil.ToFloat64(indexHpWh); got != 7654321 {
		t.Errorf("hp index gauge = %v, want 7654321", got)
	}
	if got := testutil.ToFloat64(alerte); got != 1 {
		t.Errorf("alerte gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lastReadingTimestamp); got != 1700000000 {
		t.Errorf("timestamp gauge = %v, want 1700000000", got)
	}

	RecordReading(&hcinfo.HcInfo{Timestamp: time.Unix(1700000060, 0), Periode: "HP"})
	if got := testutil.ToFloat64(alerte); got != 0 {
		t.Errorf("alerte gauge after calm reading = %v, want 0", got)
	}
}

func TestRecordDecodeErrorCountsByReason(t *testing.T) {
	before := testutil.ToFloat64(decodeErrors.WithLabelValues("checksum"))
	RecordDecodeError(fmt.Errorf("dropped: %w", teleinfo.ErrChecksumMismatch))
	after := testutil.ToFloat64(decodeErrors.WithLabelValues("checksum"))
	if after != before+1 {
		t.Errorf("checksum counter went %v -> %v, want +1", before, after)
	}
}

func TestDecodeErrorReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{teleinfo.ErrChecksumMismatch, "checksum"},
		{fmt.Errorf("group: %w", teleinfo.ErrFrameSyntax), "syntax"},
		{teleinfo.ErrTransmissionAborted, "aborted"},
		{teleinfo.ErrEndOfInput, "end_of_input"},
		{fmt.Errorf("%w: papp", hcinfo.ErrMissingField), "missing_field"},
		{hcinfo.ErrPeriodeHorsPlan, "hors_plan"},
		{fmt.Errorf("device unplugged"), "io"},
	}
	for _, c := range cases {
		if got := DecodeErrorReason(c.err); got != c.want {
			t.Errorf("DecodeErrorReason(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
