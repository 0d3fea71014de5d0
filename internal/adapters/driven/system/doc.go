// Package system reports host load so the scheduler can hold work back
// while the machine is saturated. It samples aggregate CPU and virtual
// memory usage through gopsutil and compares both against a single
// percentage threshold.
package system
