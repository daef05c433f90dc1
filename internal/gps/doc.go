// Package gps decodes NMEA 0183 telemetry into position fixes.
//
// It is intentionally small and geared toward route simulation:
// - Parse GGA, RMC and GLL for position, speed, heading and time
// - Recognize GSA and GSV without using their contents
// - Read whole NMEA logs into a fix sequence for the trajectory resampler
package gps
