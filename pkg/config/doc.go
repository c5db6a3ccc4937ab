// Package config holds the settings that shape how an engine behaves inside
// a test run: network mode, pending-mock allowance, request history size,
// logging and mock files to load on activation.
//
// Settings come from a YAML file, from MOCKNET_* environment variables, or
// both; environment values always win:
//
//	network: true
//	networkHosts: ["localhost", "*.internal"]
//	allowPendingMocks: false
//	historySize: 500
//	log:
//	  level: debug
//	  format: json
//	mocks:
//	  - testdata/mocks/**/*.yaml
package config
