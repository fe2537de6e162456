// Package config loads the gateway configuration.
//
// The configuration is one file, TOML unless its name ends in .yaml or
// .yml:
//
//	listen = ":4000"
//	state_dir = "/var/lib/adminmux"
//
//	[[backend]]
//	name = "alpha"
//	host = "10.0.0.1"
//	port = 7000
//	zone = "eu"
//
//	[[user]]
//	name = "alice"
//	password = "$2a$12$..."   # adminmux passwd
//	flags = ["devel"]
//
//	[authorization]
//	alpha = ["alice"]
//
//	[policy]
//	never_elide = ['(?i)^\[(ban|mute)\]']
//
//	[timing]
//	focused_poll = "3s"
//
// ADMINMUX_CONFIG selects the file; ADMINMUX_LISTEN and ADMINMUX_STATE_DIR
// override the matching settings.
//
// # Validation
//
// Load validates after parsing: backend names are unique and ports in
// range, passwords are bcrypt hashes, authorization names only known
// backends and users, and every policy pattern compiles.
package config
