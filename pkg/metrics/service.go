// Package metrics exposes decoding and reading gauges for Prometheus.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/teleinfo"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "teleinfo",
			Name:      "frames_decoded_total",
			Help:      "Frames decoded into a valid reading.",
		},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "teleinfo",
			Name:      "decode_errors_total",
			Help:      "Frames dropped, by failure reason.",
		},
		[]string{"reason"},
	)
	pappWatts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "papp_watts",
			Help:      "Apparent power from the latest reading.",
		},
	)
	iinstAmperes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "iinst_amperes",
			Help:      "Instantaneous current from the latest reading.",
		},
	)
	indexHcWh = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "index_hc_wh",
			Help:      "Cumulative off-peak index from the latest reading.",
		},
	)
	indexHpWh = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "index_hp_wh",
			Help:      "Cumulative peak index from the latest reading.",
		},
	)
	alerte = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "alerte",
			Help:      "1 while the subscribed intensity is exceeded.",
		},
	)
	lastReadingTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "teleinfo",
			Name:      "last_reading_timestamp_seconds",
			Help:      "Unix time of the latest valid reading.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded,
			decodeErrors,
			pappWatts,
			iinstAmperes,
			indexHcWh,
			indexHpWh,
			alerte,
			lastReadingTimestamp,
		)
	})
}

func RecordReading(reading *hcinfo.HcInfo) {
	RegisterMetrics()
	framesDecoded.Inc()
	pappWatts.Set(float64(reading.PappW))
	iinstAmperes.Set(float64(reading.IinstA))
	indexHcWh.Set(float64(reading.HcIndexWh))
	indexHpWh.Set(float64(reading.HpIndexWh))
	if reading.Alerte {
		alerte.Set(1)
	} else {
		alerte.Set(0)
	}
	lastReadingTimestamp.Set(float64(reading.Timestamp.Unix()))
}

func RecordDecodeError(err error) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(DecodeErrorReason(err)).Inc()
}

// DecodeErrorReason maps a decode/extract error to its counter label.
func DecodeErrorReason(err error) string {
	switch {
	case errors.Is(err, teleinfo.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, teleinfo.ErrFrameSyntax):
		return "syntax"
	case errors.Is(err, teleinfo.ErrTransmissionAborted):
		return "aborted"
	case errors.Is(err, teleinfo.ErrEndOfInput):
		return "end_of_input"
	case errors.Is(err, hcinfo.ErrMissingField):
		return "missing_field"
	case errors.Is(err, hcinfo.ErrPeriodeHorsPlan):
		return "hors_plan"
	default:
		return "io"
	}
}
