package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns an example file of the given kind: "link" or "schema".
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "link":
		return linkTemplate, nil
	case "schema":
		return schemaTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const linkTemplate = `name = "ground"
sender_id = 0
receiver_id = 255
component_id = 0
schema = "messages.toml"
transport = "pprz"
xbee_variant = "2.4"
poll_interval = "10ms"

[device]
kind = "udp"
local = "127.0.0.1:4242"
remote = "127.0.0.1:4243"

[secure]
tx_key = ""
rx_key = ""
# plaintext is dropped once rx_key is set; true also drops it before that
require_encryption = false

[monitor]
addr = "127.0.0.1:9090"
cors_origins = ["http://localhost:3000"]
token = ""
`

const schemaTemplate = `[[class]]
name = "telemetry"
id = 1

  [[class.message]]
  name = "ALIVE"
  id = 2
  fields = [{ name = "md5sum", type = "uint8[]" }]

  [[class.message]]
  name = "ATTITUDE"
  id = 6
  fields = [
    { name = "phi", type = "float" },
    { name = "psi", type = "float" },
    { name = "theta", type = "float" },
  ]

[[class]]
name = "datalink"
id = 2

  [[class.message]]
  name = "PING"
  id = 8
`
