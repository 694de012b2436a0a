// Package config loads the podcfgd daemon configuration.
//
// This is deployment configuration: where the control socket and the
// Prosody configuration file live, how to reload the server, and the parts
// of the generated file that are not pod settings (admins and external
// components). Pod settings themselves are stored separately and changed
// through the daemon API.
//
// # Configuration Structure
//
//	socket:
//	  path: /var/run/podcfgd.socket
//	prosody:
//	  config_path: /etc/prosody/prosody.cfg.lua
//	  process_name: prosody
//	  reload_command: [prosodyctl, reload]
//	settings:
//	  path: /var/lib/podcfg/settings.yaml
//	pod:
//	  admins:
//	    - admin@example.org
//	  components:
//	    - subdomain: gateway
//	      plugin: ""
//	      name: IRC gateway
//	      secret: s3cr3t
//
// Keys left out keep their default value, and a missing file means the
// defaults. Component secrets are read into secret.String and never
// printed back.
//
// # Validation
//
// Validate reports all problems at once:
//   - socket, prosody config and settings paths must not be empty
//   - the settings file and the prosody config file must differ
//   - the reload command must name a program
//   - admins must be bare JIDs
//   - component subdomains must be single, unique DNS labels
package config
