// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"fmt"
	"net"
	"time"

	"github.com/bmc-tools/entity-manager/codec"
	"github.com/bmc-tools/entity-manager/schema"
)

// dialTimeout bounds how long Client waits to connect to a detector
// service's socket.
const dialTimeout = 5 * time.Second

// Client is a thin caller for the same request/response protocol
// SocketServer speaks, used by the detector mirror's poller to read
// an external detector service's published objects.
// One Client corresponds to one detector service; the
// service name recorded on every schema.DetectorPath it returns is the
// socket path itself, since this transport has no separate service
// identity beyond the endpoint it dials.
type Client struct {
	socketPath string
}

// NewClient returns a Client that will dial socketPath on every call.
// The protocol is one request/response per connection, so there is no
// persistent connection to hold open or to detect reconnection on —
// GetManagedObjects is called fresh each poll, which is itself the
// idiomatic rendition of "re-issues a full scan on reconnect" for a
// transport with no subscription channel.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// GetManagedObjects dials the detector service and returns every
// object it currently publishes, converted to Detector values tagged
// with this client's socket path as the owning service.
func (c *Client) GetManagedObjects() ([]schema.Detector, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("bus: dialing %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(dialTimeout))

	request := struct {
		Action string `cbor:"action"`
	}{Action: "GetManagedObjects"}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("bus: sending GetManagedObjects to %s: %w", c.socketPath, err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("bus: reading GetManagedObjects response from %s: %w", c.socketPath, err)
	}
	if !response.OK {
		return nil, fmt.Errorf("bus: %s: %s", c.socketPath, response.Error)
	}

	var objects map[string]map[string]schema.InterfaceProperties
	if err := codec.Unmarshal(response.Data, &objects); err != nil {
		return nil, fmt.Errorf("bus: decoding GetManagedObjects data from %s: %w", c.socketPath, err)
	}

	detectors := make([]schema.Detector, 0, len(objects))
	for path, interfaces := range objects {
		detectors = append(detectors, schema.Detector{
			Path:       schema.DetectorPath{Service: c.socketPath, Path: path},
			Interfaces: interfaces,
		})
	}
	return detectors, nil
}

// setPropertyRequest mirrors busproject's own SetProperty wire shape
// minus the interface field: a detector service owns exactly the
// interfaces it chose to publish, so it resolves which one carries
// property itself rather than requiring the caller to already know.
type setPropertyRequest struct {
	Action   string       `cbor:"action"`
	Path     string       `cbor:"path"`
	Property string       `cbor:"property"`
	Value    schema.Value `cbor:"value"`
}

// SetProperty issues a write-back to a detector service: an edit made
// on a published entity's writable property lands on the detector that
// originally reported the value, so it survives the next probe.
func (c *Client) SetProperty(path, property string, value schema.Value) error {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("bus: dialing %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(dialTimeout))

	request := setPropertyRequest{Action: "SetProperty", Path: path, Property: property, Value: value}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("bus: sending SetProperty to %s: %w", c.socketPath, err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("bus: reading SetProperty response from %s: %w", c.socketPath, err)
	}
	if !response.OK {
		return fmt.Errorf("bus: %s: %s", c.socketPath, response.Error)
	}
	return nil
}
