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

// headersStage downloads headers by ascending number and stores them keyed
// by height.
type headersStage struct {
	cp net.ConnectionProvider
}

func NewHeaders(cp net.ConnectionProvider) interfaces.Stage {
	return &headersStage{cp: cp}
}

func (s *headersStage) Name() string { return Headers }

func (s *headersStage) Execute(ctx context.Context, tx *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
	client, err := s.cp.EthClient()
	if err != nil {
		return interfaces.BatchResult{}, err
	}
	bucket, err := db.StageBucket(tx, Headers)
	if err != nil {
		return interfaces.BatchResult{}, err
	}

	res := interfaces.BatchResult{To: in.From}
	end := batchEnd(in)
	for n := in.From + 1; n <= end; n++ {
		// a started batch always commits; cancellation just shortens it
		select {
		case <-ctx.Done():
			return res, nil
		default:
		}
		header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
		if errors.Is(err, ethereum.NotFound) {
			slog.Info("chain is shorter than target", "stage", Headers, "height", n-1)
			res.Done = true
			return res, nil
		}
		if err != nil {
			return interfaces.BatchResult{}, err
		}
		enc, err := json.Marshal(header)
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

func (s *headersStage) Unwind(_ context.Context, tx *bolt.Tx, in interfaces.UnwindInput) (interfaces.BatchResult, error) {
	return unwindHeightKeyed(tx, Headers, in)
}

// batchEnd caps a forward batch at the smaller of the target and the
// configured limit.
func batchEnd(in interfaces.BatchInput) uint64 {
	end := in.Target
	if limitEnd := in.From + in.Limit; in.Limit > 0 && limitEnd < end {
		end = limitEnd
	}
	return end
}

// batchFloor caps an unwind batch at Limit heights below From, never going
// under the run's floor.
func batchFloor(in interfaces.UnwindInput) uint64 {
	floor := in.Floor
	if in.Limit > 0 && in.From > in.Limit && in.From-in.Limit > floor {
		floor = in.From - in.Limit
	}
	return floor
}

// unwindHeightKeyed deletes entries of a height-keyed bucket down to the
// batch floor.
func unwindHeightKeyed(tx *bolt.Tx, stage string, in interfaces.UnwindInput) (interfaces.BatchResult, error) {
	floor := batchFloor(in)
	res := interfaces.BatchResult{To: floor}
	bucket := db.StageBucketRO(tx, stage)
	if bucket == nil {
		return res, nil
	}
	for n := floor + 1; n <= in.From; n++ {
		key := db.EncodeHeight(n)
		if bucket.Get(key) == nil {
			continue
		}
		if err := bucket.Delete(key); err != nil {
			return interfaces.BatchResult{}, err
		}
		res.Processed++
	}
	return res, nil
}
