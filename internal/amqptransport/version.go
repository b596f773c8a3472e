package amqptransport

import (
	"fmt"

	version "github.com/hashicorp/go-version"
)

// MinProtocolVersion is the lowest broker-advertised protocol version a
// Gateway will negotiate a connection against. Checked once per Gateway,
// not per endpoint, the same way a Dialer gates on broker capabilities.
var MinProtocolVersion = version.Must(version.NewVersion("1.0.0"))

// checkProtocolVersion parses advertised and compares it against
// MinProtocolVersion, mirroring a broker capability check.
func checkProtocolVersion(advertised string) error {
	if advertised == "" {
		return fmt.Errorf("amqptransport: broker did not advertise a protocol version")
	}

	v, err := version.NewVersion(advertised)
	if err != nil {
		return fmt.Errorf("amqptransport: invalid protocol version %q: %w", advertised, err)
	}

	if v.LessThan(MinProtocolVersion) {
		return fmt.Errorf(
			"amqptransport: unsupported protocol version %s, minimum is %s",
			v,
			MinProtocolVersion,
		)
	}

	return nil
}
