package provstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "prov/"

// Badger is a Store persisted in a BadgerDB directory.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configure OpenBadger.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// Logger receives badger's own log output. Nil disables it.
	Logger *slog.Logger
}

// OpenBadger opens (creating if needed) a badger-backed store.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	var bo badger.Options
	if opts.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("provenance database path is required")
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create provenance directory %s: %w", opts.Path, err)
		}
		bo = badger.DefaultOptions(opts.Path)
	}
	bo = bo.WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bo = bo.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open provenance database: %w", err)
	}
	return &Badger{db: db}, nil
}

func recordKey(analysis, nodeID string) []byte {
	return []byte(keyPrefix + analysis + "/" + nodeID)
}

func (b *Badger) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode provenance of %s: %w", rec.NodeID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Analysis, rec.NodeID), data)
	})
}

func (b *Badger) Get(ctx context.Context, analysis, nodeID string) (Record, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(analysis, nodeID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// List iterates the analysis prefix; badger yields keys in byte order, which
// sorts records by node ID.
func (b *Badger) List(ctx context.Context, analysis string) ([]Record, error) {
	var recs []Record
	prefix := []byte(keyPrefix + analysis + "/")
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode provenance %s: %w", it.Item().Key(), err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}

func (b *Badger) Close() error { return b.db.Close() }

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
