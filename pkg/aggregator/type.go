package aggregator

import "french_smart_meter/pkg/meterdb"

type Timeframe uint8

const (
	TimeframeHourly Timeframe = iota
	TimeframeDaily
	TimeframeMonthly
)

func (tf Timeframe) String() string {
	switch tf {
	case TimeframeHourly:
		return "hourly"
	case TimeframeDaily:
		return "daily"
	case TimeframeMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

type AggregateData struct {
	Timeframe          Timeframe
	EndTime            int64
	IsInDb             bool
	IsCurrentTimeframe bool
	Aggregate          meterdb.AggregatePowerTable
}
