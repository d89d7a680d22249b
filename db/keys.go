package db

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

const checkpointBucket = "checkpoints"

// StageBucket returns the data bucket for a stage, creating it on first
// write. Requires a writable transaction.
func StageBucket(tx *bolt.Tx, stage string) (*bolt.Bucket, error) {
	return tx.CreateBucketIfNotExists([]byte(stage))
}

// StageBucketRO returns the data bucket for a stage or nil if the stage has
// never written anything.
func StageBucketRO(tx *bolt.Tx, stage string) *bolt.Bucket {
	return tx.Bucket([]byte(stage))
}

// EncodeHeight keys entries by big-endian height so cursor order matches
// chain order.
func EncodeHeight(h uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], h)
	return key[:]
}

func DecodeHeight(key []byte) uint64 {
	if len(key) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}
