// Teleinfo API reads the meter's Teleinfo output and broadcasts the readings.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"french_smart_meter/pkg/config"
	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/meterutils"
	"french_smart_meter/pkg/metrics"
	"french_smart_meter/pkg/port_reader"
	"french_smart_meter/pkg/solarinverter"
)

var teleinfoReader *port_reader.TeleinfoReader

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// ws clients for broadcasting live readings. Each connection carries its own
// write lock: readings arrive from per-reading goroutines, and gorilla allows
// only one concurrent writer per connection.
var (
	wsClients                   = make(map[*websocket.Conn]*sync.Mutex)
	wsClientsMutex sync.RWMutex = sync.RWMutex{}
)

func main() {
	// Load config
	if err := config.LoadTeleinfoAPIConfig(); err != nil {
		log.Fatalf("Failed to load teleinfo API config: %v", err)
	}

	metrics.RegisterMetrics()

	// Start the Teleinfo reader
	teleinfoReader = port_reader.NewTeleinfoReader(
		config.ActiveTeleinfoAPIConfig.SerialDevice,
		config.ActiveTeleinfoAPIConfig.Baudrate,
	)

	// Start reading the meter and handle signals/errors
	teleinfoReader.StartReading(
		func(reading *hcinfo.HcInfo) {
			BroadcastToWebSockets(reading)
		},
		func(err error) {
			if err != nil {
				log.Fatalf("Error reading Teleinfo port: %v", err)
			}
		},
	)

	// Setup HTTP handlers
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{
			"message": "French Smart Meter API",
			"status":  "running",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	http.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		reading := teleinfoReader.GetLatestReading()
		w.Header().Set("Content-Type", "application/json")
		if reading == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No readings available yet",
			})
			return
		}

		json.NewEncoder(w).Encode(reading)
	})

	// Derived values in household units rather than the raw wire fields
	http.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		reading := teleinfoReader.GetLatestReading()
		w.Header().Set("Content-Type", "application/json")
		if reading == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No readings available yet",
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"periode":          reading.Periode,
			"hc_index_kwh":     meterutils.WhToKwh(reading.HcIndexWh),
			"hp_index_kwh":     meterutils.WhToKwh(reading.HpIndexWh),
			"estimated_draw_a": meterutils.VaToAmps(reading.PappW),
			"alerte":           reading.Alerte,
		})
	})

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		writeLock := AddWebSocketClient(conn)

		// Send current reading immediately if available
		if reading := teleinfoReader.GetLatestReading(); reading != nil {
			writeToWebSocket(conn, writeLock, reading.ToJsonBytes())
		}

		// Keep connection alive
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				RemoveWebSocketClient(conn)
				break
			}
		}
	})

	// May be fast or slow depending on cached response from inverter.
	http.HandleFunc("/solar", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		power, err := solarinverter.ReadActivePower()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]int32{
			"currentProduction": power,
		})
	})

	http.Handle("/metrics", promhttp.Handler())

	listener := fmt.Sprintf("%s:%d", config.ActiveTeleinfoAPIConfig.ListenAddress, config.ActiveTeleinfoAPIConfig.ListenPort)

	log.Printf("Starting French Smart Meter Teleinfo API on %s", listener)
	log.Fatal(http.ListenAndServe(listener, nil))
}

func BroadcastToWebSockets(reading *hcinfo.HcInfo) {
	wsClientsMutex.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(wsClients))
	for client, writeLock := range wsClients {
		clients[client] = writeLock
	}
	wsClientsMutex.RUnlock()

	for client, writeLock := range clients {
		if err := writeToWebSocket(client, writeLock, reading.ToJsonBytes()); err != nil {
			RemoveWebSocketClient(client)
		}
	}
}

// writeToWebSocket serializes writes to one connection across the broadcast
// goroutines and the initial snapshot sent on subscribe.
func writeToWebSocket(conn *websocket.Conn, writeLock *sync.Mutex, data []byte) error {
	writeLock.Lock()
	defer writeLock.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func AddWebSocketClient(conn *websocket.Conn) *sync.Mutex {
	writeLock := &sync.Mutex{}
	wsClientsMutex.Lock()
	wsClients[conn] = writeLock
	wsClientsMutex.Unlock()
	return writeLock
}

func RemoveWebSocketClient(conn *websocket.Conn) {
	wsClientsMutex.Lock()
	delete(wsClients, conn)
	wsClientsMutex.Unlock()
	conn.Close()
}
