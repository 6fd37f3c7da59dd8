package main

import (
	"testing"

	"french_smart_meter/pkg/aggregator"
	"french_smart_meter/pkg/meterdb"
)

func TestAggregatePayload(t *testing.T) {
	data := &aggregator.AggregateData{
		Timeframe:          aggregator.TimeframeHourly,
		EndTime:            1700003599,
		IsInDb:             true,
		IsCurrentTimeframe: false,
		Aggregate: meterdb.AggregatePowerTable{
			StartTime:    1700000000,
			HcConsumedWh: 500,
			HpConsumedWh: 1200,
			AvgPappW:     1610,
			MaxIinstA:    9,
			SampleCount:  3600,
		},
	}

	got := aggregatePayload(data)
	if got == nil {
		t.Fatal("payload is nil for a stored aggregate")
	}
	if got["start_time"] != int64(1700000000) {
		t.Errorf("start_time = %v, want 1700000000", got["start_time"])
	}
	if got["end_time"] != int64(1700003599) {
		t.Errorf("end_time = %v, want 1700003599", got["end_time"])
	}
	if got["hc_consumed_wh"] != int32(500) {
		t.Errorf("hc_consumed_wh = %v, want 500", got["hc_consumed_wh"])
	}
	if got["hp_consumed_wh"] != int32(1200) {
		t.Errorf("hp_consumed_wh = %v, want 1200", got["hp_consumed_wh"])
	}
	if got["avg_papp_w"] != int32(1610) {
		t.Errorf("avg_papp_w = %v, want 1610", got["avg_papp_w"])
	}
	if got["max_iinst_a"] != int32(9) {
		t.Errorf("max_iinst_a = %v, want 9", got["max_iinst_a"])
	}
	if got["sample_count"] != uint32(3600) {
		t.Errorf("sample_count = %v, want 3600", got["sample_count"])
	}
	if got["ongoing"] != false {
		t.Errorf("ongoing = %v, want false", got["ongoing"])
	}
}

func TestAggregatePayloadEmptyTimeframe(t *testing.T) {
	// GetLatestAggregate returns IsInDb=false before any aggregation ran
	if got := aggregatePayload(&aggregator.AggregateData{Timeframe: aggregator.TimeframeDaily}); got != nil {
		t.Fatalf("payload for missing aggregate = %v, want nil", got)
	}
	if got := aggregatePayload(nil); got != nil {
		t.Fatalf("payload for nil aggregate = %v, want nil", got)
	}
}

func TestIndexPayload(t *testing.T) {
	if got := indexPayload(nil); got != nil {
		t.Fatalf("payload for missing snapshot = %v, want nil", got)
	}

	got := indexPayload(&meterdb.SnapshotIndexHourly{
		Timestamp:    1700000000,
		HcStandingWh: 1234567,
		HpStandingWh: 7654321,
	})
	if got["timestamp"] != int64(1700000000) {
		t.Errorf("timestamp = %v, want 1700000000", got["timestamp"])
	}
	if got["hc_standing_wh"] != int32(1234567) {
		t.Errorf("hc_standing_wh = %v, want 1234567", got["hc_standing_wh"])
	}
	if got["hp_standing_wh"] != int32(7654321) {
		t.Errorf("hp_standing_wh = %v, want 7654321", got["hp_standing_wh"])
	}
}
