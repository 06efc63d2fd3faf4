package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template returns a commented daemon config with every default spelled out.
func Template() string {
	return daemonTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(daemonTemplate), 0o600)
}

const daemonTemplate = `name = "assurance"
# org_id = "ORG@AdobeOrg"
# pin = "1234"
# state_path = "assurance-state.toml"
log_level = "info"

[admin]
addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]

[session]
host = "griffon.adobe.com"
inbound_capacity = 200
outbound_capacity = 200
chunk_size = 4096
await_start_forwarding = false
client_version = "1.0.0"
shutdown_timeout = "5s"

[session.reconnect]
first_delay = "0s"
delay = "5s"
multiplier = 1.0
max_delay = "0s"

[transport]
handshake_timeout = "10s"
ping_interval = "30s"
read_limit = 1048576

[console]
log_capacity = 200
`
