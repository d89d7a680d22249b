package stages

import (
	"context"
	"encoding/json"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"stagerun/db"
	"stagerun/interfaces"
)

// txLookupStage indexes transaction hash -> block height from the bodies
// already on disk. It is fully local and needs no node connection.
type txLookupStage struct{}

func NewTxLookup() interfaces.Stage {
	return &txLookupStage{}
}

func (s *txLookupStage) Name() string { return TxLookup }

func (s *txLookupStage) Execute(ctx context.Context, tx *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
	res := interfaces.BatchResult{To: in.From}

	bodies := db.StageBucketRO(tx, Bodies)
	if bodies == nil {
		slog.Info("no bodies to index yet", "stage", TxLookup)
		return res, nil
	}
	bucket, err := db.StageBucket(tx, TxLookup)
	if err != nil {
		return interfaces.BatchResult{}, err
	}

	end := batchEnd(in)
	for n := in.From + 1; n <= end; n++ {
		select {
		case <-ctx.Done():
			return res, nil
		default:
		}
		raw := bodies.Get(db.EncodeHeight(n))
		if raw == nil {
			// caught up with the bodies stage
			return res, nil
		}
		var record bodyRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return interfaces.BatchResult{}, err
		}
		for _, hash := range record.TxHashes {
			if err := bucket.Put([]byte(hash), db.EncodeHeight(n)); err != nil {
				return interfaces.BatchResult{}, err
			}
			res.Processed++
		}
		res.To = n
	}
	return res, nil
}

func (s *txLookupStage) Unwind(_ context.Context, tx *bolt.Tx, in interfaces.UnwindInput) (interfaces.BatchResult, error) {
	floor := batchFloor(in)
	res := interfaces.BatchResult{To: floor}

	bucket := db.StageBucketRO(tx, TxLookup)
	if bucket == nil {
		return res, nil
	}
	// keys are tx hashes, so a range delete needs a full scan
	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		height := db.DecodeHeight(v)
		if height > floor && height <= in.From {
			if err := cursor.Delete(); err != nil {
				return interfaces.BatchResult{}, err
			}
			res.Processed++
		}
	}
	return res, nil
}
