// Package source produces the host events guests subscribe to: frame ticks
// at a fixed cadence, pointer releases and window resizes.
package source
