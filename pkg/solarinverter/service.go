// Package solarinverter reads the PV inverter's active power over Modbus TCP.
// The inverter sits on its own WLAN, which the Pi occasionally drops, so
// reads are preceded by a reachability check and a reconnect fallback.
package solarinverter

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"

	"french_smart_meter/pkg/config"
)

var (
	ErrInverterNotConfigured = errors.New("solar inverter not configured")
	ErrInverterReadFailed    = errors.New("solar inverter read failed")
	ErrInverterUnreachable   = errors.New("solar inverter unreachable")
)

// Active power lives in a pair of holding registers forming one big-endian
// int32, SunSpec style.
const (
	activePowerRegister = 40083
	modbusUnitId        = 1
)

var (
	readMu       sync.Mutex
	cachedWatt   int32
	cachedAtTime time.Time
)

// IsConfigured checks if the inverter settings are filled in.
// This feature is optional; empty config values are acceptable.
func IsConfigured() bool {
	cfg := config.ActiveTeleinfoAPIConfig
	return cfg.SolarInverterIp != "" &&
		cfg.SolarInverterModbusPort != 0 &&
		cfg.WlanConnectionId != ""
}

// ReadActivePower returns the inverter's current production in watts.
// Reads are cached for 10 seconds to avoid spamming the poor inverter.
func ReadActivePower() (int32, error) {
	if !IsConfigured() {
		return 0, ErrInverterNotConfigured
	}

	readMu.Lock()
	defer readMu.Unlock()
	if cachedAtTime.After(time.Now().Add(-10 * time.Second)) {
		return cachedWatt, nil
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Try reconnecting the WLAN on retry attempts
			if err := tryReconnect(); err != nil {
				lastErr = fmt.Errorf("reconnect failed on attempt %d: %w", attempt+1, err)
				continue
			}
		}

		// Ping check before attempting the modbus connection
		if ok, err := ping(config.ActiveTeleinfoAPIConfig.SolarInverterIp); !ok || err != nil {
			lastErr = fmt.Errorf("ping failed on attempt %d: %w", attempt+1, err)
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		power, err := readOnce()
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if attempt < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
			continue
		}

		cachedWatt = power
		cachedAtTime = time.Now()
		return power, nil
	}

	return 0, errors.Join(ErrInverterReadFailed, lastErr)
}

// readOnce performs a single connect-read-close cycle.
func readOnce() (int32, error) {
	cfg := config.ActiveTeleinfoAPIConfig
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", cfg.SolarInverterIp, cfg.SolarInverterModbusPort))
	handler.Timeout = 10 * time.Second
	handler.SlaveId = modbusUnitId
	defer handler.Close()

	if err := handler.Connect(); err != nil {
		return 0, fmt.Errorf("connection failed: %w", err)
	}

	// The inverter rejects requests sent right after connecting
	time.Sleep(2 * time.Second)
	client := modbus.NewClient(handler)

	result, err := client.ReadHoldingRegisters(activePowerRegister, 2)
	if err != nil {
		return 0, fmt.Errorf("read power failed: %w", err)
	}
	if len(result) < 4 {
		return 0, fmt.Errorf("short register read: %d bytes", len(result))
	}

	return int32(result[0])<<24 | int32(result[1])<<16 | int32(result[2])<<8 | int32(result[3]), nil
}

// tryReconnect brings the inverter's WLAN connection back up via nmcli.
func tryReconnect() error {
	if !IsConfigured() {
		return ErrInverterNotConfigured
	}

	// Check if already connected
	ok, err := ping(config.ActiveTeleinfoAPIConfig.SolarInverterIp)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	cmd := exec.Command("nmcli", "connection", "up", config.ActiveTeleinfoAPIConfig.WlanConnectionId)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to bring up wifi connection: %w", err)
	}

	// Wait a bit for the connection to establish
	time.Sleep(5 * time.Second)

	ok, err = ping(config.ActiveTeleinfoAPIConfig.SolarInverterIp)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInverterUnreachable
	}
	return nil
}

func ping(host string) (bool, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	if err := pinger.Run(); err != nil {
		return false, err
	}

	return pinger.Statistics().PacketsRecv > 0, nil
}
