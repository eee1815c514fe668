// Package core provides shared numeric helpers used across the filter
// packages: clamping, approximate comparison, denormal flushing, and dB
// conversions.
package core
