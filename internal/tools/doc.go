// Package tools provides host helpers shared by actuator adapters.
//
// Ownership boundary:
// - external command execution
package tools
