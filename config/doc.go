// Package config loads canvas host settings from CANVAS_* environment
// variables.
package config
