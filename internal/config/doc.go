// Package config provides configuration parsing for observe servers.
//
// The configuration is stored in observe.json or observe.yaml at the project
// root. This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	server:
//	  addr: localhost:7070
//	  writesPerSecond: 20
//	realm:
//	  name: main
//	  check: warn
//	log:
//	  level: debug
//	  format: json
//	metrics:
//	  enabled: true
//	snapshot:
//	  dir: ./data
//	  restore: true
//	values:
//	  - name: font
//	    type: string
//	    initial: Mono
//	    veto:
//	      oneOf: [Mono, Sans, Serif]
//	  - name: size
//	    type: int
//	    initial: 12
//	    veto: {min: 6, max: 72}
//	groups:
//	  - name: selection
//	    members: [font, title]
//	    multi: "<multiple>"
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
