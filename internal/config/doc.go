// Package config holds the crawl configuration for sitemigrate.
//
// Configuration is layered. NewConfig supplies defaults, a YAML file
// (.sitemigrate.yaml) overlays them, and command-line flags overlay the file.
// The resulting Config is validated once with Validate before a crawl starts.
//
// # Rule tables
//
// Page-type classification and URL exclusion are driven by ordered regular
// expression tables. PageTypes is evaluated first-match-wins, so the order of
// the rules in the file is significant:
//
//	pageTypes:
//	  - type: home
//	    pattern: "^/?$"
//	  - type: blog
//	    pattern: "/(blog|news)"
//
// # File locations
//
// FindConfigFile looks for the file at an explicit path, then in the current
// directory, then in the XDG config directory (~/.config/sitemigrate on Linux).
package config
