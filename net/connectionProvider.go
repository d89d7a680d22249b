package net

import (
	"github.com/autonity/autonity/ethclient"
	"github.com/autonity/autonity/rpc"

	"stagerun/config"
)

type ConnectionProvider interface {
	EthClient() (*ethclient.Client, error)
	RPCClient() (*rpc.Client, error)
	Close()
}

type connectionProvider struct {
	ethPool *Pool[*ethclient.Client]
	rpcPool *Pool[*rpc.Client]
}

func NewConnectionProvider(cfg config.NodeConfig) ConnectionProvider {
	return &connectionProvider{
		ethPool: NewPool[*ethclient.Client](cfg.RPC, cfg.MaxConnections),
		rpcPool: NewPool[*rpc.Client](cfg.RPC, cfg.MaxConnections),
	}
}

func (cp *connectionProvider) EthClient() (*ethclient.Client, error) {
	return cp.ethPool.Get()
}

func (cp *connectionProvider) RPCClient() (*rpc.Client, error) {
	return cp.rpcPool.Get()
}

func (cp *connectionProvider) Close() {
	cp.ethPool.Close()
	cp.rpcPool.Close()
}
