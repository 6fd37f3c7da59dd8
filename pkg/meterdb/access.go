package meterdb

import "database/sql"

func InsertHcReading(reading *MeterDbHcReading) error {
	db := GetDB()

	_, err := db.Exec(
		"INSERT INTO hc_readings "+
			"(timestamp, periode, hc_index_wh, hp_index_wh, iinst_a, papp_w, alerte) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.Periode,
		reading.HcIndexWh,
		reading.HpIndexWh,
		reading.IinstA,
		reading.PappW,
		reading.Alerte,
	)
	if err != nil {
		return err
	}
	return nil
}

// GetLatestIndexSnapshot returns the most recent hourly standing of the
// index counters, or nil when no snapshot has been taken yet.
func GetLatestIndexSnapshot() (*SnapshotIndexHourly, error) {
	db := GetDB()

	var snap SnapshotIndexHourly
	err := db.QueryRow(`
		SELECT timestamp, hc_standing_wh, hp_standing_wh
		FROM snapshot_index_hourly
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&snap.Timestamp, &snap.HcStandingWh, &snap.HpStandingWh)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}
