package net

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/autonity/autonity/ethclient"
	"github.com/autonity/autonity/rpc"
)

type clientType interface {
	*ethclient.Client | *rpc.Client
}

// Pool hands out clients for a set of node endpoints. Connections are
// dialed lazily on first use so commands that never touch the network
// (listing stages, local stages) work without a reachable node.
type Pool[T clientType] struct {
	urls []string
	max  int

	mu    sync.Mutex
	conns []T
}

func NewPool[T clientType](urls []string, max int) *Pool[T] {
	if max <= 0 {
		max = 1
	}
	return &Pool[T]{urls: urls, max: max}
}

func (p *Pool[T]) Get() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if len(p.conns) < p.max {
		if len(p.urls) == 0 {
			return zero, fmt.Errorf("no node endpoints configured")
		}
		url := p.urls[rand.Intn(len(p.urls))]
		client, err := dial[T](url)
		if err != nil {
			if len(p.conns) > 0 {
				return p.conns[rand.Intn(len(p.conns))], nil
			}
			return zero, fmt.Errorf("dialing %s: %w", url, err)
		}
		p.conns = append(p.conns, client)
		return client, nil
	}
	return p.conns[rand.Intn(len(p.conns))], nil
}

func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		switch client := any(c).(type) {
		case *ethclient.Client:
			client.Close()
		case *rpc.Client:
			client.Close()
		}
	}
	p.conns = nil
}

func dial[T clientType](url string) (T, error) {
	var client T
	switch any(client).(type) {
	case *ethclient.Client:
		c, err := ethclient.Dial(url)
		if err != nil {
			return client, err
		}
		client = any(c).(T)
	case *rpc.Client:
		c, err := rpc.Dial(url)
		if err != nil {
			return client, err
		}
		client = any(c).(T)
	}
	return client, nil
}
