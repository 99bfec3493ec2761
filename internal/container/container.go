package container

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	app "objdetect-node/internal/application"
	"objdetect-node/internal/infrastructure/flow"
	"objdetect-node/internal/infrastructure/registry"
)

// Container узлы потока и общие зависимости
type Container struct {
	Registry *registry.RuntimeRegistry
	Nodes    []*app.Node
	Hosts    map[string]*flow.Host
}

// New создаёт узлы; рантайм берётся из реестра по имени runtimeName
// и создаётся factory только при первом запросе.
func New(
	reg *registry.RuntimeRegistry,
	runtimeName string,
	factory registry.RuntimeFactory,
	nodes []app.NodeConfig,
	fs afero.Fs,
	logger zerolog.Logger,
) (*Container, error) {
	c := &Container{
		Registry: reg,
		Hosts:    make(map[string]*flow.Host, len(nodes)),
	}

	for _, cfg := range nodes {
		rt, err := reg.GetOrCreate(runtimeName, factory)
		if err != nil {
			c.closeNodes()
			return nil, err
		}

		host := flow.NewHost(cfg.ID, logger)
		node, err := app.NewNode(cfg, rt, host, fs, logger)
		if err != nil {
			c.closeNodes()
			return nil, fmt.Errorf("create node %q: %w", cfg.ID, err)
		}

		c.Nodes = append(c.Nodes, node)
		c.Hosts[cfg.ID] = host
	}

	return c, nil
}

// Node возвращает узел по идентификатору
func (c *Container) Node(id string) (*app.Node, bool) {
	for _, n := range c.Nodes {
		if n.ID() == id {
			return n, true
		}
	}
	return nil, false
}

// Close закрывает узлы, затем общие рантаймы
func (c *Container) Close() error {
	err := c.closeNodes()
	return multierr.Append(err, c.Registry.Close())
}

func (c *Container) closeNodes() error {
	var err error
	for _, n := range c.Nodes {
		err = multierr.Append(err, n.Close())
	}
	c.Nodes = nil
	return err
}
