package record

// Unit conversions from the metric values the host logs to the US units the
// Weather Underground update API expects.

// CToF converts degrees Celsius to degrees Fahrenheit.
func CToF(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// HpaToInHg converts hectopascals to inches of mercury.
func HpaToInHg(hpa float64) float64 {
	return hpa * 0.0295299830714
}

// MSToMph converts metres per second to miles per hour.
func MSToMph(ms float64) float64 {
	return ms * 2.2369362920544
}

// MmToIn converts millimetres to inches.
func MmToIn(mm float64) float64 {
	return mm / 25.4
}
