// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the file configuration shared by xyv-demo and
// xyv-monitor.
//
// The file is YAML, or JSON with comments when its name ends in .json
// or .jsonc. It is named by a --config flag ([LoadFile]) or the
// XYV_CONFIG environment variable ([Load]). Without either, binaries
// run on [Default], and flags override individual values.
//
//	telemetry:
//	  tick_interval: 20ms
//	  heartbeat_interval: 400ms
//	  policy: capacity-checked     # or unconditional
//	  heartbeat_mark: attempt      # or success
//	  level: debug
//	serial:
//	  device: ${XYV_PORT:-/dev/ttyACM0}
//	  baud: 115200
//	monitor:
//	  stale_after: 2s
//	  record: ${HOME}/captures/arm.xyvcap
//	  compression: zstd
//
// ${VAR} and ${VAR:-default} are expanded in path fields only. No
// other environment variable overrides a value from the file.
package config
