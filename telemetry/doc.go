// Package telemetry wires OpenTelemetry tracing for the canvas host.
package telemetry
