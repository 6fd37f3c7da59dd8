// Package hcinfo folds decoded frames into flat readings for the
// Heures Creuses tariff plan.
package hcinfo

import (
	"encoding/json"
	"time"
)

// HcInfo is one validated snapshot taken from a single frame. All fields
// except Alerte come from mandatory groups; construction fails if any of
// them is absent, so an HcInfo is never partially filled.
type HcInfo struct {
	// When the frame was received, stamped by the reader.
	Timestamp time.Time `json:"timestamp"`

	// Tariff period in effect, "HC" or "HP".
	Periode string `json:"periode"`

	// Cumulative indexes, in Wh
	HcIndexWh int32 `json:"hc_index_wh"`
	HpIndexWh int32 `json:"hp_index_wh"`

	// Instantaneous electrical info
	IinstA int32 `json:"iinst_a"`
	PappW  int32 `json:"papp_w"`

	// True while the subscribed intensity is exceeded
	Alerte bool `json:"alerte"`
}

func (h *HcInfo) ToJsonBytes() []byte {
	data, err := json.Marshal(h)
	if err != nil {
		return nil
	}
	return data
}

// HcInfoFromJsonBytes returns nil if the payload does not parse.
func HcInfoFromJsonBytes(data []byte) *HcInfo {
	var h HcInfo
	if err := json.Unmarshal(data, &h); err != nil {
		return nil
	}
	return &h
}
