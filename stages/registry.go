package stages

import (
	"sync"

	"stagerun/interfaces"
	"stagerun/net"
)

var (
	stageRegistry = make(map[string]interfaces.Stage)
	mu            sync.RWMutex
)

// Stage names, in pipeline order.
const (
	Headers  = "headers"
	Bodies   = "bodies"
	TxLookup = "txlookup"
)

func RegisterStages(cp net.ConnectionProvider) {
	mu.Lock()
	defer mu.Unlock()

	stageRegistry[Headers] = NewHeaders(cp)
	stageRegistry[Bodies] = NewBodies(cp)
	stageRegistry[TxLookup] = NewTxLookup()
}

// GetStage returns the registered stage or nil for an unknown name.
func GetStage(name string) interfaces.Stage {
	mu.RLock()
	defer mu.RUnlock()
	return stageRegistry[name]
}

func Names() []string {
	return []string{Headers, Bodies, TxLookup}
}
