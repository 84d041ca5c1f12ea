// Package wrpcnats binds the transport package's abstract Subject,
// Subscriber, Transmitter, Invoker and Acceptor interfaces to NATS
// (github.com/nats-io/nats.go), using subject hierarchies and wildcard
// subscriptions to carry the primary payload plus every child subject an
// async value/subscription tree requires.
package wrpcnats

import (
	"bytes"
	"encoding/json"
)

// Config holds the configuration for connecting to the NATS server that
// carries wrpc traffic.
type Config struct {
	Address       string `json:"address"`         // NATS server address (e.g., "nats://localhost:4222")
	Username      string `json:"username"`        // Username for authentication (optional)
	Password      string `json:"password"`        // Password for authentication (optional)
	CredsFilePath string `json:"creds-file-path"` // Path to credentials file (optional)
}

// ConfigSchema documents Config's JSON shape for embedding in a parent
// application's own config schema.
const ConfigSchema = `{
    "type": "object",
    "description": "Configuration for the NATS wrpc transport binding.",
    "properties": {
        "address": {
            "description": "Address of the NATS server (e.g., 'nats://localhost:4222').",
            "type": "string"
        },
        "username": {
            "description": "Username for NATS authentication (optional).",
            "type": "string"
        },
        "password": {
            "description": "Password for NATS authentication (optional).",
            "type": "string"
        },
        "creds-file-path": {
            "description": "Path to NATS credentials file for authentication (optional).",
            "type": "string"
        }
    },
    "required": ["address"]
}`

// ParseConfig decodes a Config from JSON, rejecting unknown fields.
func ParseConfig(rawConfig json.RawMessage) (Config, error) {
	var cfg Config
	if rawConfig == nil {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(rawConfig))
	dec.DisallowUnknownFields()
	err := dec.Decode(&cfg)
	return cfg, err
}
