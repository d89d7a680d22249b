package stages

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"

	ethereum "github.com/autonity/autonity"
	bolt "go.etcd.io/bbolt"

	"stagerun/db"
	"stagerun/interfaces"
	"stagerun/net"
)

// bodyRecord is what the bodies stage persists per block. txlookup builds
// its index from these.
type bodyRecord struct {
	Hash     string   `json:"hash"`
	TxHashes []string `json:"txs"`
	GasUsed  uint64   `json:"gas_used"`
}

// bodiesStage downloads full blocks. It never outruns the headers stage:
// the effective target is capped at the headers checkpoint.
type bodiesStage struct {
	cp net.ConnectionProvider
}

func NewBodies(cp net.ConnectionProvider) interfaces.Stage {
	return &bodiesStage{cp: cp}
}

func (s *bodiesStage) Name() string { return Bodies }

func (s *bodiesStage) Execute(ctx context.Context, tx *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
	res := interfaces.BatchResult{To: in.From}

	headersCp, ok, err := db.LoadIn(tx, Headers)
	if err != nil {
		return interfaces.BatchResult{}, err
	}
	if !ok || headersCp.Height <= in.From {
		slog.Info("bodies caught up with headers", "height", in.From, "headers", headersCp.Height)
		return res, nil
	}

	client, err := s.cp.EthClient()
	if err != nil {
		return interfaces.BatchResult{}, err
	}
	bucket, err := db.StageBucket(tx, Bodies)
	if err != nil {
		return interfaces.BatchResult{}, err
	}

	end := bodiesEnd(in, headersCp.Height)
	for n := in.From + 1; n <= end; n++ {
		select {
		case <-ctx.Done():
			return res, nil
		default:
		}
		block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(n))
		if errors.Is(err, ethereum.NotFound) {
			res.Done = true
			return res, nil
		}
		if err != nil {
			return interfaces.BatchResult{}, err
		}
		record := bodyRecord{
			Hash:    block.Hash().Hex(),
			GasUsed: block.GasUsed(),
		}
		for _, transaction := range block.Transactions() {
			record.TxHashes = append(record.TxHashes, transaction.Hash().Hex())
		}
		enc, err := json.Marshal(record)
		if err != nil {
			return interfaces.BatchResult{}, err
		}
		if err := bucket.Put(db.EncodeHeight(n), enc); err != nil {
			return interfaces.BatchResult{}, err
		}
		res.To = n
		res.Processed++
	}
	return res, nil
}

func (s *bodiesStage) Unwind(_ context.Context, tx *bolt.Tx, in interfaces.UnwindInput) (interfaces.BatchResult, error) {
	return unwindHeightKeyed(tx, Bodies, in)
}

// bodiesEnd caps a bodies batch at the headers checkpoint on top of the
// usual target/limit bounds.
func bodiesEnd(in interfaces.BatchInput, headersHeight uint64) uint64 {
	end := batchEnd(in)
	if headersHeight < end {
		end = headersHeight
	}
	return end
}
