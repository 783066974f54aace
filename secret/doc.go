// Package secret resolves credentials referenced from configuration.
//
// A configuration value may be:
//   - a literal, returned as-is after ${VAR} expansion (see ExpandEnvStrict)
//   - a full reference:  secretref:env:TAVILY_API_KEY
//   - an inline reference: Bearer secretref:file:/run/secrets/tavily
//
// The env and file providers are built in (see DefaultResolver). Resolved
// values are never logged.
package secret
