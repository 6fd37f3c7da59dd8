package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"french_smart_meter/pkg/pathing"
)

var (
	ActiveTeleinfoAPIConfig    *TeleinfoAPIConfig
	ActiveMeterCollectorConfig *MeterCollectorConfig
)

func LoadTeleinfoAPIConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "teleinfo_api.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &TeleinfoAPIConfig{
			// Teleinfo output is wired to the Pi's own UART, 1200 baud 7E1
			SerialDevice:            "/dev/ttyAMA0",
			Baudrate:                1200,
			ListenAddress:           "0.0.0.0",
			ListenPort:              9042,
			SolarInverterIp:         "192.168.200.1",
			SolarInverterModbusPort: 502,
			WlanConnectionId:        "preconfigured", // Check with `nmcli device status`
		}
		// Create file
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveTeleinfoAPIConfig = cfg
		return nil
	}

	// Load existing config
	var config TeleinfoAPIConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveTeleinfoAPIConfig = &config
	return nil
}

func LoadMeterCollectorConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "meter_collector.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &MeterCollectorConfig{
			TeleinfoAPIHost: "localhost:9042",
			TLSEnabled:      false,
			ListenAddress:   "127.0.0.1",
			ListenPort:      9043,
		}
		// Create file
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveMeterCollectorConfig = cfg
		return nil
	}

	// Load existing config
	var config MeterCollectorConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = &config
	return nil
}
