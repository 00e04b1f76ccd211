// Package config loads simulation settings from CUE files.
//
// A config file is unified with an embedded #Config schema that supplies
// defaults and rejects invalid mode combinations (rank outside ca mode,
// probability weights outside ra mode or together with rank). The decoded
// Config converts to engine.Options; command-line flags override file
// values in the CLI.
package config
