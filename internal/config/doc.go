// Package config loads and validates inkwell.json, the project
// configuration consumed by the serve command.
package config
