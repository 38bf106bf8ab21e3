// Package config loads primeslot configuration.
//
// Sources are layered, later ones winning: built-in defaults, a YAML file
// passed with --config, a .env file in the working directory, then
// PRIMESLOT_* environment variables. Command-line flags are applied on top
// by the cmd packages.
//
//	server:
//	  addr: ":8080"
//	  requestTimeout: 15s
//	storage:
//	  dataDir: /var/lib/primeslot
//	auth:
//	  jwtSecret: change-me-please-32-bytes
//	meetings:
//	  requireExistingMembership: false
//	  rejectOverlaps: true
//	reconciler:
//	  interval: 10m
package config
