package main

import _ "embed"

// embeddedConfig holds the YAML configuration embedded at build time.
// The watchdog.yaml file ships with documented defaults; build scripts
// may overwrite it with a machine-specific configuration before compiling.
//
//go:embed watchdog.yaml
var embeddedConfig []byte
