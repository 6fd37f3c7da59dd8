// Responsible for storing the readings collected from the meter.
// Depends on the teleinfo API being online.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"french_smart_meter/pkg/aggregator"
	"french_smart_meter/pkg/config"
	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/livefeed"
	"french_smart_meter/pkg/meterdb"
)

func main() {
	// Load config
	if err := config.LoadMeterCollectorConfig(); err != nil {
		log.Fatalf("Failed to load meter collector config: %v", err)
	}

	// Initialize database
	meterdb.InitializeDatabase()

	// Aggregate on startup, then once an hour
	go func() {
		if err := aggregator.AggregateAndCleanup(); err != nil {
			log.Printf("Aggregation failed: %v", err)
		}
		for range time.Tick(time.Hour) {
			if err := aggregator.AggregateAndCleanup(); err != nil {
				log.Printf("Aggregation failed: %v", err)
			}
		}
	}()

	// Serve stored aggregates for dashboards
	go serveAggregates()

	// Subscribe to websocket with revive
	livefeed.StartListener(
		config.ActiveMeterCollectorConfig.TeleinfoAPIHost,
		config.ActiveMeterCollectorConfig.TLSEnabled,
		handleMeterReading,
	)
}

// Store one reading as it arrives from the live feed
func handleMeterReading(reading *hcinfo.HcInfo) {
	err := meterdb.InsertHcReading(&meterdb.MeterDbHcReading{
		Timestamp: reading.Timestamp.Unix(),
		Periode:   reading.Periode,
		HcIndexWh: reading.HcIndexWh,
		HpIndexWh: reading.HpIndexWh,
		IinstA:    reading.IinstA,
		PappW:     reading.PappW,
		Alerte:    reading.Alerte,
	})
	if err != nil {
		log.Printf("Failed to store reading: %v", err)
	}
}

// serveAggregates exposes the latest stored aggregate per timeframe plus the
// latest index standing, since the collector is the process that owns the DB.
func serveAggregates() {
	http.HandleFunc("/aggregates", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		payload := make(map[string]interface{})
		timeframes := []aggregator.Timeframe{
			aggregator.TimeframeHourly,
			aggregator.TimeframeDaily,
			aggregator.TimeframeMonthly,
		}
		for _, tf := range timeframes {
			data, err := aggregator.GetLatestAggregate(tf)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			payload[tf.String()] = aggregatePayload(data)
		}

		snap, err := meterdb.GetLatestIndexSnapshot()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		payload["index_standing"] = indexPayload(snap)

		json.NewEncoder(w).Encode(payload)
	})

	listener := fmt.Sprintf("%s:%d",
		config.ActiveMeterCollectorConfig.ListenAddress,
		config.ActiveMeterCollectorConfig.ListenPort,
	)
	log.Printf("Serving aggregates on %s", listener)
	log.Fatal(http.ListenAndServe(listener, nil))
}

// aggregatePayload flattens one stored aggregate for the JSON response.
// Timeframes with nothing aggregated yet render as null.
func aggregatePayload(data *aggregator.AggregateData) map[string]interface{} {
	if data == nil || !data.IsInDb {
		return nil
	}
	return map[string]interface{}{
		"start_time":     data.Aggregate.StartTime,
		"end_time":       data.EndTime,
		"hc_consumed_wh": data.Aggregate.HcConsumedWh,
		"hp_consumed_wh": data.Aggregate.HpConsumedWh,
		"avg_papp_w":     data.Aggregate.AvgPappW,
		"max_iinst_a":    data.Aggregate.MaxIinstA,
		"sample_count":   data.Aggregate.SampleCount,
		"ongoing":        data.IsCurrentTimeframe,
	}
}

func indexPayload(snap *meterdb.SnapshotIndexHourly) map[string]interface{} {
	if snap == nil {
		return nil
	}
	return map[string]interface{}{
		"timestamp":      snap.Timestamp,
		"hc_standing_wh": snap.HcStandingWh,
		"hp_standing_wh": snap.HpStandingWh,
	}
}
