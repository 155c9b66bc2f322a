package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/arloliu/pulse/types"
)

var journalPrefix = []byte("alert/")

// JournalNotifier records alerts in an embedded badger store.
//
// The journal is an audit trail of delivered alerts; node state itself is
// never persisted.
type JournalNotifier struct {
	db    *badger.DB
	owned bool
}

var _ types.Notifier = (*JournalNotifier)(nil)

// OpenJournal opens (or creates) a journal in dir.
//
// An empty dir opens an in-memory journal.
func OpenJournal(dir string) (*JournalNotifier, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert journal: %w", err)
	}

	return &JournalNotifier{db: db, owned: true}, nil
}

// NewJournalNotifier wraps an already opened badger database.
// The caller keeps ownership of db.
func NewJournalNotifier(db *badger.DB) *JournalNotifier {
	return &JournalNotifier{db: db}
}

// Name returns "journal".
func (j *JournalNotifier) Name() string {
	return "journal"
}

// Notify appends the alert for node to the journal.
func (j *JournalNotifier) Notify(ctx context.Context, node types.NodeSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	alert := NewAlert(node, time.Now())
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	key := fmt.Appendf(nil, "%s%020d/%s", journalPrefix, alert.Timestamp.UnixNano(), alert.ID)

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to write alert for %s: %w", node.Name, err)
	}

	return nil
}

// Recent returns up to limit alerts, newest first.
func (j *JournalNotifier) Recent(limit int) ([]Alert, error) {
	var alerts []Alert

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = journalPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, journalPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(journalPrefix) && len(alerts) < limit; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var a Alert
			if err := json.Unmarshal(val, &a); err != nil {
				return fmt.Errorf("corrupt journal entry %q: %w", it.Item().Key(), err)
			}
			alerts = append(alerts, a)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read alert journal: %w", err)
	}

	return alerts, nil
}

// Close closes the underlying database if the journal opened it.
func (j *JournalNotifier) Close() error {
	if !j.owned {
		return nil
	}

	return j.db.Close()
}
