// Package config loads securebot configuration from YAML.
//
// Configuration supports environment variable expansion using ${VAR_NAME}
// syntax, which is applied to the raw file content before parsing. Duration
// fields are written as strings ("30s", "1m") and parsed during load.
// Unset fields receive defaults (retention 50, context window 10,
// conversation id "default", max_tokens 1024, temperature 0.7, timeout 30s);
// Validate rejects configs missing the server address, database path, or
// analyzer base URL, and windows larger than the retention bound.
package config
