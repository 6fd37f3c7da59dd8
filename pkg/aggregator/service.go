package aggregator

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"french_smart_meter/pkg/meterdb"
)

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// roundToDayStart returns the Unix timestamp of the start of the day for the given time
func roundToDayStart(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// roundToMonthStart returns the Unix timestamp of the start of the month for the given time
func roundToMonthStart(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
}

// getHourEnd returns the Unix timestamp of the last second of the hour (next hour start - 1)
func getHourEnd(hourStart int64) int64 {
	return time.Unix(hourStart, 0).Add(time.Hour).Unix() - 1
}

// getDayEnd returns the Unix timestamp of the last second of the day (next day start - 1)
func getDayEnd(dayStart int64) int64 {
	return time.Unix(dayStart, 0).UTC().AddDate(0, 0, 1).Unix() - 1
}

// getMonthEnd returns the Unix timestamp of the last second of the month (next month start - 1)
func getMonthEnd(monthStart int64) int64 {
	t := time.Unix(monthStart, 0).UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).Unix() - 1
}

// indexDelta returns the energy counted between two standings of a
// cumulative index. A lower last standing means the counter was reset
// (meter swap), in which case the window has no usable delta.
func indexDelta(first, last int32) int32 {
	if last < first {
		return 0
	}
	return last - first
}

// firstLastIndex returns the first and last standing of one index column
// within [start, end]. The column name comes from a fixed set of callers,
// never from input.
func firstLastIndex(db *sql.DB, column string, start, end int64) (first, last int32, ok bool) {
	firstQuery := fmt.Sprintf(`
		SELECT %s
		FROM hc_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
		LIMIT 1
	`, column)

	if err := db.QueryRow(firstQuery, start, end).Scan(&first); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Error querying first %s: %v", column, err)
		}
		return 0, 0, false
	}

	lastQuery := fmt.Sprintf(`
		SELECT %s
		FROM hc_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, column)

	if err := db.QueryRow(lastQuery, start, end).Scan(&last); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Error querying last %s: %v", column, err)
		}
		return 0, 0, false
	}

	return first, last, true
}

// aggregatePowerRange computes one consumption aggregate over [start, end]
// and stores it with the given insert statement. Index counters make the
// window math trivial: consumed energy is the index delta, no averaging
// over time involved.
func aggregatePowerRange(insertQuery string, start, end int64) error {
	db := meterdb.GetDB()

	var sampleCount uint32
	var avgPapp sql.NullFloat64
	var maxIinst sql.NullInt64
	err := db.QueryRow(`
		SELECT COUNT(*), AVG(papp_w), MAX(iinst_a)
		FROM hc_readings
		WHERE timestamp >= ? AND timestamp <= ?
	`, start, end).Scan(&sampleCount, &avgPapp, &maxIinst)
	if err != nil {
		return err
	}

	// Only insert if we have data
	if sampleCount == 0 {
		return nil
	}

	hcFirst, hcLast, ok := firstLastIndex(db, "hc_index_wh", start, end)
	if !ok {
		return nil
	}
	hpFirst, hpLast, ok := firstLastIndex(db, "hp_index_wh", start, end)
	if !ok {
		return nil
	}

	_, err = db.Exec(insertQuery,
		start,
		indexDelta(hcFirst, hcLast),
		indexDelta(hpFirst, hpLast),
		int32(avgPapp.Float64),
		int32(maxIinst.Int64),
		sampleCount,
	)
	return err
}

// aggregatePowerHourly aggregates readings for a specific hour
func aggregatePowerHourly(hourStart int64) error {
	insertQuery := `
		INSERT OR REPLACE INTO aggregate_power_hourly
		(hour_start, hc_consumed_wh, hp_consumed_wh, avg_papp_w, max_iinst_a, sample_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	return aggregatePowerRange(insertQuery, hourStart, getHourEnd(hourStart))
}

// aggregatePowerDaily aggregates readings for a specific day
func aggregatePowerDaily(dayStart int64) error {
	insertQuery := `
		INSERT OR REPLACE INTO aggregate_power_daily
		(day_start, hc_consumed_wh, hp_consumed_wh, avg_papp_w, max_iinst_a, sample_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	return aggregatePowerRange(insertQuery, dayStart, getDayEnd(dayStart))
}

// aggregatePowerMonthly aggregates readings for a specific month
func aggregatePowerMonthly(monthStart int64) error {
	insertQuery := `
		INSERT OR REPLACE INTO aggregate_power_monthly
		(month_start, hc_consumed_wh, hp_consumed_wh, avg_papp_w, max_iinst_a, sample_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	return aggregatePowerRange(insertQuery, monthStart, getMonthEnd(monthStart))
}

// snapshotIndexHourly retains the index standings for a specific hour
func snapshotIndexHourly(hourStart int64) error {
	db := meterdb.GetDB()
	hourEnd := getHourEnd(hourStart)

	// Look back 24 hours so a reading gap does not lose the standing
	lookbackStart := hourEnd - (24 * 3600)

	query := `
		SELECT hc_index_wh, hp_index_wh
		FROM hc_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var hcStanding, hpStanding int32
	err := db.QueryRow(query, lookbackStart, hourEnd).Scan(&hcStanding, &hpStanding)
	if err != nil {
		if err == sql.ErrNoRows {
			// No entry within timeframe, that's okay
			return nil
		}
		return err
	}

	insertQuery := `
		INSERT OR REPLACE INTO snapshot_index_hourly
		(timestamp, hc_standing_wh, hp_standing_wh)
		VALUES (?, ?, ?)
	`

	_, err = db.Exec(insertQuery, hourStart, hcStanding, hpStanding)
	return err
}

// cleanupOldData removes raw readings older than 3 months if we have aggregated them
func cleanupOldData() error {
	db := meterdb.GetDB()

	// Calculate the cutoff timestamp (3 months ago)
	threeMonthsAgo := time.Now().UTC().AddDate(0, -3, 0)
	cutoffTimestamp := threeMonthsAgo.Unix()

	// Check if we have aggregated data up to the cutoff point
	// We check the last hourly aggregate to see if we've aggregated recent enough data
	var lastAggregateHour sql.NullInt64
	err := db.QueryRow("SELECT MAX(hour_start) FROM aggregate_power_hourly").Scan(&lastAggregateHour)
	if err != nil {
		return err
	}
	if !lastAggregateHour.Valid {
		// No aggregates yet, don't clean up
		return nil
	}

	// Only clean up if we have aggregated data up to the cutoff point
	if lastAggregateHour.Int64 < cutoffTimestamp {
		// We haven't aggregated enough data yet, don't clean up
		return nil
	}

	// Delete old raw readings
	_, err = db.Exec("DELETE FROM hc_readings WHERE timestamp < ?", cutoffTimestamp)
	if err != nil {
		return err
	}

	log.Printf("Cleaned up data older than %s", threeMonthsAgo.Format(time.RFC3339))
	return nil
}

// GetLatestAggregate returns the most recent stored aggregate for the given
// timeframe, with IsInDb false when the table is still empty.
func GetLatestAggregate(tf Timeframe) (*AggregateData, error) {
	db := meterdb.GetDB()

	var table, startColumn string
	switch tf {
	case TimeframeHourly:
		table, startColumn = "aggregate_power_hourly", "hour_start"
	case TimeframeDaily:
		table, startColumn = "aggregate_power_daily", "day_start"
	case TimeframeMonthly:
		table, startColumn = "aggregate_power_monthly", "month_start"
	default:
		return nil, fmt.Errorf("unknown timeframe %d", tf)
	}

	query := fmt.Sprintf(`
		SELECT %s, hc_consumed_wh, hp_consumed_wh, avg_papp_w, max_iinst_a, sample_count
		FROM %s
		ORDER BY %s DESC
		LIMIT 1
	`, startColumn, table, startColumn)

	data := &AggregateData{Timeframe: tf}
	var agg meterdb.AggregatePowerTable
	err := db.QueryRow(query).Scan(
		&agg.StartTime,
		&agg.HcConsumedWh,
		&agg.HpConsumedWh,
		&agg.AvgPappW,
		&agg.MaxIinstA,
		&agg.SampleCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		return nil, err
	}

	data.IsInDb = true
	data.Aggregate = agg
	switch tf {
	case TimeframeHourly:
		data.EndTime = getHourEnd(agg.StartTime)
	case TimeframeDaily:
		data.EndTime = getDayEnd(agg.StartTime)
	case TimeframeMonthly:
		data.EndTime = getMonthEnd(agg.StartTime)
	}
	data.IsCurrentTimeframe = time.Now().UTC().Unix() <= data.EndTime
	return data, nil
}

// AggregateAndCleanup performs all aggregation and cleanup tasks
// This is the main function to call for data aggregation
func AggregateAndCleanup() error {
	now := time.Now().UTC()

	// Aggregate the previous hour (current hour is still ongoing)
	previousHour := now.Add(-time.Hour)
	hourStart := roundToHourStart(previousHour)

	log.Printf("Aggregating data for hour starting at %s", time.Unix(hourStart, 0).Format(time.RFC3339))

	if err := aggregatePowerHourly(hourStart); err != nil {
		log.Printf("Error aggregating hourly power: %v", err)
		return err
	}

	if err := snapshotIndexHourly(hourStart); err != nil {
		log.Printf("Error creating index snapshot: %v", err)
		return err
	}

	// Aggregate the previous day if it's a new day
	if now.Hour() == 0 {
		previousDay := now.AddDate(0, 0, -1)
		dayStart := roundToDayStart(previousDay)

		log.Printf("Aggregating data for day starting at %s", time.Unix(dayStart, 0).Format(time.RFC3339))

		if err := aggregatePowerDaily(dayStart); err != nil {
			log.Printf("Error aggregating daily power: %v", err)
			return err
		}
	}

	// Aggregate the previous month if it's a new month
	if now.Hour() == 0 && now.Day() == 1 {
		previousMonth := now.AddDate(0, -1, 0)
		monthStart := roundToMonthStart(previousMonth)

		log.Printf("Aggregating data for month starting at %s", time.Unix(monthStart, 0).Format(time.RFC3339))

		if err := aggregatePowerMonthly(monthStart); err != nil {
			log.Printf("Error aggregating monthly power: %v", err)
			return err
		}
	}

	// Run cleanup
	if err := cleanupOldData(); err != nil {
		log.Printf("Error cleaning up old data: %v", err)
		return err
	}

	log.Println("Aggregation and cleanup completed successfully")
	return nil
}
