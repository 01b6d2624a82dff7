package httpapi

// Config defines HTTP and push channel settings.
type Config struct {
	// Host is the bind address; defaults to loopback only.
	Host string
	// Port is the requested listen port. When it is taken, the server
	// falls back to an OS-assigned ephemeral port.
	Port int
	// SendBuffer is the per-viewer outbound queue depth.
	SendBuffer int
	// Welcome is the greeting sent in the connection message.
	Welcome string
}

// DefaultPort is the requested listen port when none is configured.
const DefaultPort = 8744

// Normalize fills defaults for zero-valued settings.
func (c Config) Normalize() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.Welcome == "" {
		c.Welcome = "periscope connected"
	}
	return c
}
