package meterdb

type MeterDbHcReading struct {
	Timestamp int64  `db:"timestamp"`
	Periode   string `db:"periode"`
	HcIndexWh int32  `db:"hc_index_wh"`
	HpIndexWh int32  `db:"hp_index_wh"`
	IinstA    int32  `db:"iinst_a"`
	PappW     int32  `db:"papp_w"`
	Alerte    bool   `db:"alerte"`
}

// Aggregate model - consumption deltas computed from the index counters.
// The hourly, daily and monthly tables share this row shape.
type AggregatePowerTable struct {
	StartTime    int64  `db:"start_time"`
	HcConsumedWh int32  `db:"hc_consumed_wh"`
	HpConsumedWh int32  `db:"hp_consumed_wh"`
	AvgPappW     int32  `db:"avg_papp_w"`
	MaxIinstA    int32  `db:"max_iinst_a"`
	SampleCount  uint32 `db:"sample_count"`
}

// Snapshot models - retained index standings
type SnapshotIndexHourly struct {
	Timestamp    int64 `db:"timestamp"`
	HcStandingWh int32 `db:"hc_standing_wh"`
	HpStandingWh int32 `db:"hp_standing_wh"`
}
