// Package badgerstore is an embedded, on-disk Backend built on BadgerDB.
// Records are JSON values. Histories are kept in secondary index keys of the
// form "<kind>idx:<scope>:<unix nanos, 19 digits>:<id>" so a reverse prefix
// scan yields newest-first pages without loading whole conversations.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	presencePrefix      = "presence:"
	directPrefix        = "dm:"
	directIndexPrefix   = "dmidx:"
	groupPrefix         = "group:"
	groupMsgPrefix      = "gm:"
	groupMsgIndexPrefix = "gmidx:"

	// seekLatest sorts after every 19 digit timestamp.
	seekLatest = "9999999999999999999"

	conflictRetries     = 32
	conflictBackoffBase = time.Millisecond
	conflictBackoffCap  = 25 * time.Millisecond
)

type presence struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

type Store struct {
	db            *badger.DB
	log           *slog.Logger
	resetOnRejoin bool
}

var _ domain.Backend = (*Store)(nil)

type Option func(*Store)

// WithReceiptReset drops a member's delivered and read entries in a group
// when they are added to it again.
func WithReceiptReset(reset bool) Option {
	return func(s *Store) { s.resetOnRejoin = reset }
}

// Open opens the database at path. An empty path keeps everything in memory.
func Open(path string, log *slog.Logger, opts ...Option) (*Store, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		options = options.WithInMemory(true)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return New(db, log, opts...), nil
}

// New wraps an already opened database. Close closes it.
func New(db *badger.DB, log *slog.Logger, opts ...Option) *Store {
	s := &Store{db: db, log: log.With("component", "badgerstore")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// update runs fn in a read-write transaction and runs it again when another
// transaction committed a conflicting write first. fn must not carry state
// from one attempt to the next.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	backoff := retry.WithMaxRetries(conflictRetries,
		retry.WithCappedDuration(conflictBackoffCap,
			retry.WithJitterPercent(50, retry.NewExponential(conflictBackoffBase))))

	attempt := 0
	err := retry.Do(ctx, backoff, func(context.Context) error {
		attempt++
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, badger.ErrConflict) {
		s.log.Warn("transaction conflict persisted", "attempts", attempt)
	}
	return err
}

func (s *Store) SetPresence(ctx context.Context, user domain.UserID, online bool, at time.Time) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return put(txn, presencePrefix+string(user), presence{Online: online, LastSeen: at.UTC()})
	})
}

func (s *Store) CreateDirectMessage(ctx context.Context, msg domain.DirectMessage) (domain.DirectMessage, error) {
	msg.ID = domain.MessageID(uuid.NewString())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredAt, msg.ReadAt = nil, nil
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := put(txn, directPrefix+string(msg.ID), msg); err != nil {
			return err
		}
		return txn.Set(indexKey(directIndexPrefix, msg.Room(), msg.CreatedAt, string(msg.ID)), nil)
	})
	if err != nil {
		return domain.DirectMessage{}, err
	}
	return msg, nil
}

func (s *Store) GetDirectMessage(_ context.Context, id domain.MessageID) (domain.DirectMessage, error) {
	var msg domain.DirectMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, directPrefix+string(id), &msg)
	})
	return msg, err
}

func (s *Store) MarkDirectDelivered(ctx context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.updateDirect(ctx, id, func(m *domain.DirectMessage) bool { return m.MarkDelivered(at) })
}

func (s *Store) MarkDirectRead(ctx context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.updateDirect(ctx, id, func(m *domain.DirectMessage) bool { return m.MarkRead(at) })
}

func (s *Store) updateDirect(ctx context.Context, id domain.MessageID, fn func(*domain.DirectMessage) bool) (domain.DirectMessage, bool, error) {
	var (
		msg     domain.DirectMessage
		changed bool
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		msg, changed = domain.DirectMessage{}, false
		key := directPrefix + string(id)
		if err := get(txn, key, &msg); err != nil {
			return err
		}
		if changed = fn(&msg); !changed {
			return nil
		}
		return put(txn, key, msg)
	})
	if err != nil {
		return domain.DirectMessage{}, false, err
	}
	return msg, changed, nil
}

func (s *Store) ListDirectMessages(_ context.Context, a, b domain.UserID, page domain.Page) ([]domain.DirectMessage, error) {
	room := domain.DirectRoom(a, b)
	var out []domain.DirectMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return scanIndex(txn, directIndexPrefix, room, page, func(id string) (bool, error) {
			var msg domain.DirectMessage
			if err := get(txn, directPrefix+id, &msg); err != nil {
				return false, err
			}
			if msg.Room() != room {
				return false, nil
			}
			out = append(out, msg)
			return true, nil
		})
	})
	return out, err
}

func (s *Store) CreateGroupMessage(ctx context.Context, msg domain.GroupMessage) (domain.GroupMessage, error) {
	msg.ID = domain.MessageID(uuid.NewString())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredTo = []domain.Receipt{}
	msg.ReadBy = []domain.Receipt{}
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(groupPrefix + string(msg.Group))); err != nil {
			return notFound(err)
		}
		if err := put(txn, groupMsgPrefix+string(msg.ID), msg); err != nil {
			return err
		}
		return txn.Set(indexKey(groupMsgIndexPrefix, string(msg.Group), msg.CreatedAt, string(msg.ID)), nil)
	})
	if err != nil {
		return domain.GroupMessage{}, err
	}
	return msg, nil
}

func (s *Store) GetGroupMessage(_ context.Context, id domain.MessageID) (domain.GroupMessage, error) {
	var msg domain.GroupMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, groupMsgPrefix+string(id), &msg)
	})
	return msg, err
}

func (s *Store) TouchGroup(ctx context.Context, id domain.GroupID, at time.Time) error {
	return s.updateGroup(ctx, id, func(g *domain.Group) error {
		g.LastActivity = at.UTC()
		return nil
	})
}

func (s *Store) MarkGroupDelivered(ctx context.Context, id domain.MessageID, users []domain.UserID, at time.Time) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var msg domain.GroupMessage
		key := groupMsgPrefix + string(id)
		if err := get(txn, key, &msg); err != nil {
			return err
		}
		changed := false
		for _, u := range users {
			changed = msg.MarkDeliveredTo(u, at) || changed
		}
		if !changed {
			return nil
		}
		return put(txn, key, msg)
	})
}

func (s *Store) MarkGroupRead(ctx context.Context, id domain.MessageID, user domain.UserID, at time.Time) (domain.Receipt, bool, error) {
	var (
		receipt domain.Receipt
		changed bool
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		var msg domain.GroupMessage
		key := groupMsgPrefix + string(id)
		if err := get(txn, key, &msg); err != nil {
			return err
		}
		if receipt, changed = msg.MarkReadBy(user, at); !changed {
			return nil
		}
		return put(txn, key, msg)
	})
	if err != nil {
		return domain.Receipt{}, false, err
	}
	return receipt, changed, nil
}

func (s *Store) ListGroupMessages(_ context.Context, group domain.GroupID, page domain.Page) ([]domain.GroupMessage, error) {
	var out []domain.GroupMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return scanIndex(txn, groupMsgIndexPrefix, string(group), page, func(id string) (bool, error) {
			var msg domain.GroupMessage
			if err := get(txn, groupMsgPrefix+id, &msg); err != nil {
				return false, err
			}
			if msg.Group != group || msg.IsDeleted {
				return false, nil
			}
			out = append(out, msg)
			return true, nil
		})
	})
	return out, err
}

func (s *Store) IsMember(ctx context.Context, group domain.GroupID, user domain.UserID) (bool, error) {
	g, err := s.GetGroup(ctx, group)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.IsMember(user), nil
}

func (s *Store) MemberRole(ctx context.Context, group domain.GroupID, user domain.UserID) (domain.Role, error) {
	g, err := s.GetGroup(ctx, group)
	if err != nil {
		return "", err
	}
	role, ok := g.RoleOf(user)
	if !ok {
		return "", domain.ErrNotMember
	}
	return role, nil
}

func (s *Store) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	if g.ID == "" {
		g.ID = domain.GroupID(uuid.NewString())
	}
	if err := g.Validate(); err != nil {
		return domain.Group{}, err
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := groupPrefix + string(g.ID)
		if _, err := txn.Get([]byte(key)); err == nil {
			return domain.ErrGroupExists
		}
		return put(txn, key, g)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id domain.GroupID) (domain.Group, error) {
	var g domain.Group
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, groupPrefix+string(id), &g)
	})
	return g, err
}

func (s *Store) AddMember(ctx context.Context, id domain.GroupID, user domain.UserID, role domain.Role, at time.Time) (domain.Group, error) {
	var g domain.Group
	err := s.update(ctx, func(txn *badger.Txn) error {
		g = domain.Group{}
		key := groupPrefix + string(id)
		if err := get(txn, key, &g); err != nil {
			return err
		}
		if err := g.AddMember(user, role, at); err != nil {
			return err
		}
		if err := put(txn, key, g); err != nil {
			return err
		}
		if !s.resetOnRejoin {
			return nil
		}
		s.log.Debug("resetting receipts", "group", id, "user", user)
		return s.forgetReceipts(txn, id, user)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Store) forgetReceipts(txn *badger.Txn, group domain.GroupID, user domain.UserID) error {
	return scanIndex(txn, groupMsgIndexPrefix, string(group), domain.Page{Limit: -1}, func(id string) (bool, error) {
		var msg domain.GroupMessage
		key := groupMsgPrefix + id
		if err := get(txn, key, &msg); err != nil {
			return false, err
		}
		if msg.Group != group || !msg.ForgetReceipts(user) {
			return false, nil
		}
		return false, put(txn, key, msg)
	})
}

func (s *Store) RemoveMember(ctx context.Context, id domain.GroupID, user domain.UserID, at time.Time) (domain.Group, error) {
	var g domain.Group
	err := s.updateGroup(ctx, id, func(stored *domain.Group) error {
		if err := stored.RemoveMember(user, at); err != nil {
			return err
		}
		g = *stored
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Store) updateGroup(ctx context.Context, id domain.GroupID, fn func(*domain.Group) error) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var g domain.Group
		key := groupPrefix + string(id)
		if err := get(txn, key, &g); err != nil {
			return err
		}
		if err := fn(&g); err != nil {
			return err
		}
		return put(txn, key, g)
	})
}

// scanIndex walks the index of scope from newest to oldest within page and
// calls visit with each record id. visit reports whether the record counted
// toward the page. A negative page limit scans everything.
func scanIndex(txn *badger.Txn, kind, scope string, page domain.Page, visit func(id string) (bool, error)) error {
	prefix := []byte(kind + scope + ":")
	seek := append([]byte{}, prefix...)
	if page.Before.IsZero() {
		seek = append(seek, seekLatest...)
	} else {
		seek = append(seek, fmt.Sprintf("%019d", page.Before.UnixNano())...)
	}

	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	limit, taken := page.Size(), 0
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		if page.Limit >= 0 && taken == limit {
			break
		}
		id, ok := indexID(it.Item().Key()[len(prefix):])
		if !ok {
			continue
		}
		counted, err := visit(id)
		if err != nil {
			return err
		}
		if counted {
			taken++
		}
	}
	return nil
}

// indexID extracts the id from the "<19 digits>:<id>" tail of an index key.
// Tails of a longer scope that shares the prefix do not parse.
func indexID(tail []byte) (string, bool) {
	if len(tail) < 21 || tail[19] != ':' {
		return "", false
	}
	for _, c := range tail[:19] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return string(tail[20:]), true
}

func indexKey(kind, scope string, at time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%s:%019d:%s", kind, scope, at.UnixNano(), id)
}

func put(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func get(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return notFound(err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	return err
}
