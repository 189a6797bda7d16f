//go:build integration

package containers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const gremlinImage = "tinkerpop/gremlin-server:3.7.3"

// TinkerGraph must accept the string ids the domain generates.
const tinkerGraphProperties = `gremlin.graph=org.apache.tinkerpop.gremlin.tinkergraph.structure.TinkerGraph
gremlin.tinkergraph.vertexIdManager=ANY
gremlin.tinkergraph.edgeIdManager=LONG
gremlin.tinkergraph.vertexPropertyIdManager=LONG
`

// GremlinContainer wraps a Gremlin Server backed by an in-memory TinkerGraph.
type GremlinContainer struct {
	Container testcontainers.Container
	URL       string
}

// NewGremlinContainer starts a new Gremlin Server container.
func NewGremlinContainer(t *testing.T) *GremlinContainer {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        gremlinImage,
			ExposedPorts: []string{"8182/tcp"},
			Files: []testcontainers.ContainerFile{{
				Reader:            strings.NewReader(tinkerGraphProperties),
				ContainerFilePath: "/opt/gremlin-server/conf/tinkergraph-empty.properties",
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForListeningPort("8182/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start gremlin container: %v", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "8182/tcp", "ws")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get gremlin endpoint: %v", err)
	}

	return &GremlinContainer{
		Container: container,
		URL:       fmt.Sprintf("%s/gremlin", endpoint),
	}
}
