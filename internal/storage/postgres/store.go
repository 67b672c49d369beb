// Package postgres is the production Backend on PostgreSQL, reached through
// the pgx database/sql driver. The schema is managed by embedded goose
// migrations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/storage/postgres/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	receiptDelivered = "delivered"
	receiptRead      = "read"
)

type Store struct {
	db            *sql.DB
	log           *slog.Logger
	resetOnRejoin bool
	newID         func() string
}

var _ domain.Backend = (*Store)(nil)

type Option func(*Store)

// WithReceiptReset drops a member's delivered and read entries in a group
// when they are added to it again.
func WithReceiptReset(reset bool) Option {
	return func(s *Store) { s.resetOnRejoin = reset }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open connects to dsn, checks the connection and applies pending
// migrations.
func Open(ctx context.Context, dsn string, log *slog.Logger, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return New(db, log, opts...), nil
}

// Migrate applies the embedded migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// New wraps an open database. Close closes it.
func New(db *sql.DB, log *slog.Logger, opts ...Option) *Store {
	s := &Store{db: db, log: log.With("component", "postgres"), newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SetPresence(ctx context.Context, user domain.UserID, online bool, at time.Time) error {
	query :=
		`INSERT INTO presence (user_id, online, last_seen)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET online = EXCLUDED.online, last_seen = EXCLUDED.last_seen`

	_, err := s.db.ExecContext(ctx, query, user, online, at.UTC())
	return dbError(err)
}

func (s *Store) CreateDirectMessage(ctx context.Context, msg domain.DirectMessage) (domain.DirectMessage, error) {
	msg.ID = domain.MessageID(s.newID())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredAt, msg.ReadAt = nil, nil

	query :=
		`INSERT INTO direct_messages (id, sender, receiver, room, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Sender, msg.Receiver, msg.Room(), msg.Content, msg.CreatedAt)
	if err != nil {
		return domain.DirectMessage{}, dbError(err)
	}
	return msg, nil
}

const directColumns = `id, sender, receiver, content, created_at, delivered_at, read_at`

func (s *Store) GetDirectMessage(ctx context.Context, id domain.MessageID) (domain.DirectMessage, error) {
	query := `SELECT ` + directColumns + ` FROM direct_messages WHERE id = $1`

	msg, err := scanDirect(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.DirectMessage{}, dbError(err)
	}
	return msg, nil
}

func (s *Store) MarkDirectDelivered(ctx context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.markDirect(ctx, "delivered_at", id, at)
}

func (s *Store) MarkDirectRead(ctx context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.markDirect(ctx, "read_at", id, at)
}

// markDirect sets column only while it is NULL, so the first timestamp wins.
func (s *Store) markDirect(ctx context.Context, column string, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	query := `UPDATE direct_messages SET ` + column + ` = $2 WHERE id = $1 AND ` + column + ` IS NULL`

	res, err := s.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return domain.DirectMessage{}, false, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.DirectMessage{}, false, dbError(err)
	}
	msg, err := s.GetDirectMessage(ctx, id)
	if err != nil {
		return domain.DirectMessage{}, false, err
	}
	return msg, n > 0, nil
}

func (s *Store) ListDirectMessages(ctx context.Context, a, b domain.UserID, page domain.Page) ([]domain.DirectMessage, error) {
	query :=
		`SELECT ` + directColumns + ` FROM direct_messages
		 WHERE room = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		 ORDER BY created_at DESC
		 LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, domain.DirectRoom(a, b), before(page), page.Size())
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var out []domain.DirectMessage
	for rows.Next() {
		msg, err := scanDirect(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, msg)
	}
	return out, dbError(rows.Err())
}

func (s *Store) CreateGroupMessage(ctx context.Context, msg domain.GroupMessage) (domain.GroupMessage, error) {
	msg.ID = domain.MessageID(s.newID())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredTo = []domain.Receipt{}
	msg.ReadBy = []domain.Receipt{}
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return domain.GroupMessage{}, err
	}

	query :=
		`INSERT INTO group_messages (id, group_id, sender, content, message_type, attachments, system_event, target_user, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE EXISTS (SELECT 1 FROM groups WHERE id = $2)`

	res, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Group, msg.Sender, msg.Content, msg.Type, attachments, msg.SystemEvent, msg.TargetUser, msg.CreatedAt)
	if err != nil {
		return domain.GroupMessage{}, dbError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.GroupMessage{}, dbError(err)
	} else if n == 0 {
		return domain.GroupMessage{}, domain.ErrNotFound
	}
	return msg, nil
}

const groupMessageColumns = `id, group_id, sender, content, message_type, attachments, system_event, target_user, created_at, edited_at, is_deleted`

func (s *Store) GetGroupMessage(ctx context.Context, id domain.MessageID) (domain.GroupMessage, error) {
	query := `SELECT ` + groupMessageColumns + ` FROM group_messages WHERE id = $1`

	msg, err := scanGroupMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.GroupMessage{}, dbError(err)
	}

	receipts :=
		`SELECT message_id, user_id, kind, at FROM group_message_receipts
		 WHERE message_id = $1
		 ORDER BY at, user_id`

	msgs := []domain.GroupMessage{msg}
	if err := s.attachReceipts(ctx, msgs, receipts, id); err != nil {
		return domain.GroupMessage{}, err
	}
	return msgs[0], nil
}

func (s *Store) TouchGroup(ctx context.Context, id domain.GroupID, at time.Time) error {
	return touchGroup(ctx, s.db, id, at)
}

func (s *Store) MarkGroupDelivered(ctx context.Context, id domain.MessageID, users []domain.UserID, at time.Time) error {
	return withTx(ctx, s.db, func(tx DBTX) error {
		if err := groupMessageExists(ctx, tx, id); err != nil {
			return err
		}
		for _, u := range users {
			if _, err := insertReceipt(ctx, tx, id, u, receiptDelivered, at); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) MarkGroupRead(ctx context.Context, id domain.MessageID, user domain.UserID, at time.Time) (domain.Receipt, bool, error) {
	var (
		receipt domain.Receipt
		changed bool
	)
	err := withTx(ctx, s.db, func(tx DBTX) error {
		if err := groupMessageExists(ctx, tx, id); err != nil {
			return err
		}
		var err error
		if changed, err = insertReceipt(ctx, tx, id, user, receiptRead, at); err != nil {
			return err
		}
		query := `SELECT at FROM group_message_receipts WHERE message_id = $1 AND user_id = $2 AND kind = $3`
		receipt.UserID = user
		return dbError(tx.QueryRowContext(ctx, query, id, user, receiptRead).Scan(&receipt.At))
	})
	if err != nil {
		return domain.Receipt{}, false, err
	}
	receipt.At = receipt.At.UTC()
	return receipt, changed, nil
}

func (s *Store) ListGroupMessages(ctx context.Context, group domain.GroupID, page domain.Page) ([]domain.GroupMessage, error) {
	window :=
		`SELECT id FROM group_messages
		 WHERE group_id = $1 AND NOT is_deleted AND ($2::timestamptz IS NULL OR created_at < $2)
		 ORDER BY created_at DESC
		 LIMIT $3`
	query := `SELECT ` + groupMessageColumns + ` FROM group_messages WHERE id IN (` + window + `) ORDER BY created_at DESC`
	args := []any{group, before(page), page.Size()}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var out []domain.GroupMessage
	for rows.Next() {
		msg, err := scanGroupMessage(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	if len(out) == 0 {
		return out, nil
	}

	receipts :=
		`SELECT message_id, user_id, kind, at FROM group_message_receipts
		 WHERE message_id IN (` + window + `)
		 ORDER BY at, user_id`
	if err := s.attachReceipts(ctx, out, receipts, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) attachReceipts(ctx context.Context, msgs []domain.GroupMessage, query string, args ...any) error {
	index := make(map[domain.MessageID]int, len(msgs))
	for i, m := range msgs {
		index[m.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return dbError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   domain.MessageID
			r    domain.Receipt
			kind string
		)
		if err := rows.Scan(&id, &r.UserID, &kind, &r.At); err != nil {
			return dbError(err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		r.At = r.At.UTC()
		switch kind {
		case receiptDelivered:
			msgs[i].DeliveredTo = append(msgs[i].DeliveredTo, r)
		case receiptRead:
			msgs[i].ReadBy = append(msgs[i].ReadBy, r)
		}
	}
	return dbError(rows.Err())
}

func (s *Store) IsMember(ctx context.Context, group domain.GroupID, user domain.UserID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var ok bool
	if err := s.db.QueryRowContext(ctx, query, group, user).Scan(&ok); err != nil {
		return false, dbError(err)
	}
	return ok, nil
}

func (s *Store) MemberRole(ctx context.Context, group domain.GroupID, user domain.UserID) (domain.Role, error) {
	query :=
		`SELECT m.role FROM groups g
		 LEFT JOIN group_members m ON m.group_id = g.id AND m.user_id = $2
		 WHERE g.id = $1`

	var role sql.NullString
	if err := s.db.QueryRowContext(ctx, query, group, user).Scan(&role); err != nil {
		return "", dbError(err)
	}
	if !role.Valid {
		return "", domain.ErrNotMember
	}
	return domain.Role(role.String), nil
}

func (s *Store) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	if g.ID == "" {
		g.ID = domain.GroupID(s.newID())
	}
	if err := g.Validate(); err != nil {
		return domain.Group{}, err
	}

	err := withTx(ctx, s.db, func(tx DBTX) error {
		query :=
			`INSERT INTO groups (id, name, description, admin, max_members, is_private, allow_member_invites, allow_file_sharing, last_activity, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO NOTHING`

		res, err := tx.ExecContext(ctx, query, g.ID, g.Name, g.Description, g.Admin, g.MaxMembers, g.IsPrivate,
			g.Settings.AllowMemberInvites, g.Settings.AllowFileSharing, g.LastActivity.UTC(), g.CreatedAt.UTC())
		if err != nil {
			return dbError(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return dbError(err)
		} else if n == 0 {
			return domain.ErrGroupExists
		}
		for _, m := range g.Members {
			if err := insertMember(ctx, tx, g.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	return loadGroup(ctx, s.db, id, false)
}

func (s *Store) AddMember(ctx context.Context, id domain.GroupID, user domain.UserID, role domain.Role, at time.Time) (domain.Group, error) {
	var g domain.Group
	err := withTx(ctx, s.db, func(tx DBTX) error {
		var err error
		if g, err = loadGroup(ctx, tx, id, true); err != nil {
			return err
		}
		if err := g.AddMember(user, role, at); err != nil {
			return err
		}
		if err := insertMember(ctx, tx, id, g.Members[len(g.Members)-1]); err != nil {
			return err
		}
		if err := touchGroup(ctx, tx, id, g.LastActivity); err != nil {
			return err
		}
		if !s.resetOnRejoin {
			return nil
		}
		query :=
			`DELETE FROM group_message_receipts
			 WHERE user_id = $2 AND message_id IN (SELECT id FROM group_messages WHERE group_id = $1)`
		res, err := tx.ExecContext(ctx, query, id, user)
		if err != nil {
			return dbError(err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.log.Debug("receipts reset", "group", id, "user", user, "count", n)
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *Store) RemoveMember(ctx context.Context, id domain.GroupID, user domain.UserID, at time.Time) (domain.Group, error) {
	var g domain.Group
	err := withTx(ctx, s.db, func(tx DBTX) error {
		var err error
		if g, err = loadGroup(ctx, tx, id, true); err != nil {
			return err
		}
		if err := g.RemoveMember(user, at); err != nil {
			return err
		}
		query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`
		if _, err := tx.ExecContext(ctx, query, id, user); err != nil {
			return dbError(err)
		}
		return touchGroup(ctx, tx, id, g.LastActivity)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func loadGroup(ctx context.Context, db DBTX, id domain.GroupID, forUpdate bool) (domain.Group, error) {
	query :=
		`SELECT id, name, description, admin, max_members, is_private, allow_member_invites, allow_file_sharing, last_activity, created_at
		 FROM groups WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var g domain.Group
	err := db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Description, &g.Admin, &g.MaxMembers, &g.IsPrivate,
		&g.Settings.AllowMemberInvites, &g.Settings.AllowFileSharing, &g.LastActivity, &g.CreatedAt)
	if err != nil {
		return domain.Group{}, dbError(err)
	}
	g.LastActivity, g.CreatedAt = g.LastActivity.UTC(), g.CreatedAt.UTC()

	members := `SELECT user_id, role, joined_at FROM group_members WHERE group_id = $1 ORDER BY joined_at, user_id`
	rows, err := db.QueryContext(ctx, members, id)
	if err != nil {
		return domain.Group{}, dbError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.User, &m.Role, &m.JoinedAt); err != nil {
			return domain.Group{}, dbError(err)
		}
		m.JoinedAt = m.JoinedAt.UTC()
		g.Members = append(g.Members, m)
	}
	return g, dbError(rows.Err())
}

func insertMember(ctx context.Context, tx DBTX, group domain.GroupID, m domain.Member) error {
	query := `INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`
	_, err := tx.ExecContext(ctx, query, group, m.User, m.Role, m.JoinedAt.UTC())
	return dbError(err)
}

func touchGroup(ctx context.Context, db DBTX, id domain.GroupID, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE groups SET last_activity = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func groupMessageExists(ctx context.Context, tx DBTX, id domain.MessageID) error {
	var one int
	return dbError(tx.QueryRowContext(ctx, `SELECT 1 FROM group_messages WHERE id = $1`, id).Scan(&one))
}

// insertReceipt records a receipt unless one of the same kind exists and
// reports whether it did.
func insertReceipt(ctx context.Context, tx DBTX, id domain.MessageID, user domain.UserID, kind string, at time.Time) (bool, error) {
	query :=
		`INSERT INTO group_message_receipts (message_id, user_id, kind, at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (message_id, user_id, kind) DO NOTHING`

	res, err := tx.ExecContext(ctx, query, id, user, kind, at.UTC())
	if err != nil {
		return false, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbError(err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDirect(row scanner) (domain.DirectMessage, error) {
	var (
		msg             domain.DirectMessage
		delivered, read sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Content, &msg.CreatedAt, &delivered, &read); err != nil {
		return domain.DirectMessage{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredAt = nullTime(delivered)
	msg.ReadAt = nullTime(read)
	return msg, nil
}

func scanGroupMessage(row scanner) (domain.GroupMessage, error) {
	var (
		msg         domain.GroupMessage
		attachments []byte
		edited      sql.NullTime
	)
	err := row.Scan(&msg.ID, &msg.Group, &msg.Sender, &msg.Content, &msg.Type, &attachments,
		&msg.SystemEvent, &msg.TargetUser, &msg.CreatedAt, &edited, &msg.IsDeleted)
	if err != nil {
		return domain.GroupMessage{}, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return domain.GroupMessage{}, fmt.Errorf("decode attachments of %s: %w", msg.ID, err)
		}
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.EditedAt = nullTime(edited)
	msg.DeliveredTo = []domain.Receipt{}
	msg.ReadBy = []domain.Receipt{}
	return msg, nil
}

func marshalAttachments(as []domain.Attachment) ([]byte, error) {
	if as == nil {
		as = []domain.Attachment{}
	}
	data, err := json.Marshal(as)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	return data, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func before(p domain.Page) sql.NullTime {
	return sql.NullTime{Time: p.Before.UTC(), Valid: !p.Before.IsZero()}
}

// dbError maps a driver error to the domain: no rows is ErrNotFound, anything
// else is wrapped.
func dbError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
