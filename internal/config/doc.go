// Package config loads the calsheet configuration.
//
// Values come from three layers, later ones winning: built-in defaults, the
// YAML file (by default $XDG_CONFIG_HOME/calsheet/config.yaml) and
// environment variables. Command-line flags are applied on top by the cmd
// package. A missing file is not an error.
package config
