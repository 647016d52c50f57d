// Package config loads launcher settings. Values come from built-in defaults,
// an optional "<stem>.yaml" beside the launcher binary, and environment
// variables carrying the branding prefix (FEET_LOG_LEVEL, FEET_PAYLOAD, ...),
// in increasing order of precedence.
package config
