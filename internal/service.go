package internal

import (
	"github.com/deevus/truenas-go"
	"github.com/deevus/truenas-go/client"
)

// Services holds initialized truenas-go service interfaces for one server.
type Services struct {
	Datasets  truenas.DatasetServiceAPI
	Snapshots truenas.SnapshotServiceAPI
}

// NewServices creates a Services container from the given service interfaces.
func NewServices(ds truenas.DatasetServiceAPI, ss truenas.SnapshotServiceAPI) *Services {
	return &Services{
		Datasets:  ds,
		Snapshots: ss,
	}
}

// FromClient builds the Services aggregate from a connected client,
// resolving the server's API version once for all services.
func FromClient(c *client.WebSocketClient) *Services {
	version := c.Version()
	return NewServices(
		truenas.NewDatasetService(c, version),
		truenas.NewSnapshotService(c, version),
	)
}
