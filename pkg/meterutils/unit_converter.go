package meterutils

import "math"

// Nominal mains voltage used to relate apparent power to current.
const NominalVoltage = 230.0

func WhToKwh(wh int32) float64 {
	return float64(wh) / 1000
}

// No negative values
func KwhToWh(kwh float64) int32 {
	if kwh < 0 {
		return 0
	}
	return int32(math.Round(kwh * 1000))
}

// Approximate apparent power for a given current draw - No negative values
func AmpsToVa(amps int32) int32 {
	if amps < 0 {
		return 0
	}
	return int32(math.Round(float64(amps) * NominalVoltage))
}

// Approximate current draw for a given apparent power - No negative values
func VaToAmps(va int32) float64 {
	if va < 0 {
		return 0
	}
	return float64(va) / NominalVoltage
}
