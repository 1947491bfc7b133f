package model

import "context"

// BlobStorage is the off-chain content-addressed store for encrypted
// payloads. Put returns the content hash the payload is retrievable under;
// the ledger itself only ever sees these hashes.
type BlobStorage interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, hash string) ([]byte, error)
	Exists(ctx context.Context, hash string) (bool, error)
	Remove(ctx context.Context, hash string) error
}
