package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newStoreWithMock(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	opts = append([]Option{WithIDGenerator(func() string { return "id-1" })}, opts...)
	s := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return s, mock
}

var directRow = []string{"id", "sender", "receiver", "content", "created_at", "delivered_at", "read_at"}

func TestSetPresence(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+presence\s*\(user_id,\s*online,\s*last_seen\).*ON\s+CONFLICT\s*\(user_id\)\s+DO\s+UPDATE`
	mock.ExpectExec(q).WithArgs("u1", true, now).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetPresence(context.Background(), "u1", true, now))
}

func TestSetPresence_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+presence`).WillReturnError(errors.New("db down"))

	err := s.SetPresence(context.Background(), "u1", false, now)
	require.ErrorContains(t, err, "db error: db down")
}

func TestCreateDirectMessage(t *testing.T) {
	req := require.New(t)
	s, mock := newStoreWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+direct_messages\s*\(id,\s*sender,\s*receiver,\s*room,\s*content,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)$`
	mock.ExpectExec(q).
		WithArgs("id-1", "u2", "u1", "dm:u1|u2", "hi", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := s.CreateDirectMessage(context.Background(), domain.DirectMessage{Sender: "u2", Receiver: "u1", Content: "hi", CreatedAt: now})
	req.NoError(err)
	req.Equal(domain.MessageID("id-1"), msg.ID)
	req.Nil(msg.DeliveredAt)
}

func TestGetDirectMessage_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+direct_messages\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetDirectMessage(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkDirectRead(t *testing.T) {
	readAt := now.Add(time.Minute)
	cases := []struct {
		name    string
		updated int64
		changed bool
	}{
		{"first read", 1, true},
		{"repeated read", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			s, mock := newStoreWithMock(t)

			mock.ExpectExec(`(?s)^UPDATE\s+direct_messages\s+SET\s+read_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+read_at\s+IS\s+NULL$`).
				WithArgs("m1", readAt).
				WillReturnResult(sqlmock.NewResult(0, tc.updated))
			mock.ExpectQuery(`FROM\s+direct_messages\s+WHERE\s+id`).
				WithArgs("m1").
				WillReturnRows(sqlmock.NewRows(directRow).AddRow("m1", "u1", "u2", "hi", now, now, readAt))

			msg, changed, err := s.MarkDirectRead(context.Background(), "m1", readAt)
			req.NoError(err)
			req.Equal(tc.changed, changed)
			req.NotNil(msg.ReadAt)
			req.True(readAt.Equal(*msg.ReadAt))
		})
	}
}

func TestMarkDirectDelivered_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE\s+direct_messages\s+SET\s+delivered_at`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM\s+direct_messages`).WillReturnError(sql.ErrNoRows)

	_, _, err := s.MarkDirectDelivered(context.Background(), "ghost", now)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDirectMessages(t *testing.T) {
	req := require.New(t)
	s, mock := newStoreWithMock(t)

	q := `(?s)FROM\s+direct_messages\s+WHERE\s+room\s*=\s*\$1\s+AND\s+\(\$2::timestamptz\s+IS\s+NULL\s+OR\s+created_at\s*<\s*\$2\)\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$3$`
	mock.ExpectQuery(q).
		WithArgs("dm:u1|u2", sql.NullTime{Time: now, Valid: true}, 10).
		WillReturnRows(sqlmock.NewRows(directRow).
			AddRow("m2", "u1", "u2", "second", now.Add(-time.Second), nil, nil).
			AddRow("m1", "u2", "u1", "first", now.Add(-time.Minute), now, nil))

	msgs, err := s.ListDirectMessages(context.Background(), "u2", "u1", domain.Page{Before: now, Limit: 10})
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("second", msgs[0].Content)
	req.Nil(msgs[0].DeliveredAt)
	req.NotNil(msgs[1].DeliveredAt)
}

func TestCreateGroupMessage_UnknownGroup(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+group_messages.*WHERE\s+EXISTS\s+\(SELECT\s+1\s+FROM\s+groups\s+WHERE\s+id\s*=\s*\$2\)$`).
		WithArgs("id-1", "g9", "u1", "hi", "text", []byte("[]"), "", "", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.CreateGroupMessage(context.Background(), domain.GroupMessage{
		Sender: "u1", Group: "g9", Content: "hi", Type: domain.MessageText, CreatedAt: now,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetGroupMessage(t *testing.T) {
	req := require.New(t)
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*group_id,.*FROM\s+group_messages\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "sender", "content", "message_type", "attachments", "system_event", "target_user", "created_at", "edited_at", "is_deleted"}).
			AddRow("m1", "g1", "u1", "pic", "image", []byte(`[{"url":"https://cdn.example/p.png","mimeType":"image/png","size":7}]`), "", "", now, nil, false))
	mock.ExpectQuery(`(?s)FROM\s+group_message_receipts\s+WHERE\s+message_id\s*=\s*\$1`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "user_id", "kind", "at"}).
			AddRow("m1", "u2", "delivered", now).
			AddRow("m1", "u3", "delivered", now).
			AddRow("m1", "u2", "read", now.Add(time.Minute)))

	msg, err := s.GetGroupMessage(context.Background(), "m1")
	req.NoError(err)
	req.Equal(domain.MessageImage, msg.Type)
	req.Equal([]domain.Attachment{{URL: "https://cdn.example/p.png", MimeType: "image/png", Size: 7}}, msg.Attachments)
	req.Len(msg.DeliveredTo, 2)
	req.Equal([]domain.Receipt{{UserID: "u2", At: now.Add(time.Minute)}}, msg.ReadBy)
}

func TestMarkGroupRead(t *testing.T) {
	first := now.Add(time.Minute)
	cases := []struct {
		name     string
		inserted int64
		changed  bool
	}{
		{"first read", 1, true},
		{"repeated read", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			s, mock := newStoreWithMock(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT\s+1\s+FROM\s+group_messages\s+WHERE\s+id\s*=\s*\$1`).
				WithArgs("m1").
				WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
			mock.ExpectExec(`(?s)INSERT\s+INTO\s+group_message_receipts.*ON\s+CONFLICT\s+\(message_id,\s*user_id,\s*kind\)\s+DO\s+NOTHING`).
				WithArgs("m1", "u2", "read", now.Add(time.Hour)).
				WillReturnResult(sqlmock.NewResult(0, tc.inserted))
			mock.ExpectQuery(`SELECT\s+at\s+FROM\s+group_message_receipts`).
				WithArgs("m1", "u2", "read").
				WillReturnRows(sqlmock.NewRows([]string{"at"}).AddRow(first))
			mock.ExpectCommit()

			r, changed, err := s.MarkGroupRead(context.Background(), "m1", "u2", now.Add(time.Hour))
			req.NoError(err)
			req.Equal(tc.changed, changed)
			req.Equal(domain.Receipt{UserID: "u2", At: first}, r)
		})
	}
}

func TestMarkGroupDelivered_UnknownMessageRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT\s+1\s+FROM\s+group_messages`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.MarkGroupDelivered(context.Background(), "ghost", []domain.UserID{"u2"}, now)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemberRole(t *testing.T) {
	q := `(?s)^SELECT\s+m\.role\s+FROM\s+groups\s+g\s+LEFT\s+JOIN\s+group_members\s+m`

	t.Run("member", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("g1", "u1").WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("moderator"))
		role, err := s.MemberRole(context.Background(), "g1", "u1")
		require.NoError(t, err)
		require.Equal(t, domain.RoleModerator, role)
	})
	t.Run("not a member", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("g1", "u9").WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(nil))
		_, err := s.MemberRole(context.Background(), "g1", "u9")
		require.ErrorIs(t, err, domain.ErrNotMember)
	})
	t.Run("unknown group", func(t *testing.T) {
		s, mock := newStoreWithMock(t)
		mock.ExpectQuery(q).WithArgs("g9", "u1").WillReturnError(sql.ErrNoRows)
		_, err := s.MemberRole(context.Background(), "g9", "u1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestIsMember(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT\s+EXISTS`).WithArgs("g1", "u2").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.IsMember(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateGroup_Duplicate(t *testing.T) {
	s, mock := newStoreWithMock(t)
	g, err := domain.NewGroup("g1", "team", "u1", nil, 0, now)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+groups.*ON\s+CONFLICT\s+\(id\)\s+DO\s+NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = s.CreateGroup(context.Background(), g)
	require.ErrorIs(t, err, domain.ErrGroupExists)
}

func TestCreateGroup_InvalidNeverReachesDatabase(t *testing.T) {
	s, _ := newStoreWithMock(t)

	_, err := s.CreateGroup(context.Background(), domain.Group{ID: "g1", Name: "team", Admin: "u1", MaxMembers: 1})
	require.ErrorIs(t, err, domain.ErrInvalidGroup)
}

func TestAddMemberResetsReceipts(t *testing.T) {
	req := require.New(t)
	s, mock := newStoreWithMock(t, WithReceiptReset(true))
	groupCols := []string{"id", "name", "description", "admin", "max_members", "is_private", "allow_member_invites", "allow_file_sharing", "last_activity", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)FROM\s+groups\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(groupCols).AddRow("g1", "team", "", "u1", 100, false, true, true, now, now))
	mock.ExpectQuery(`FROM\s+group_members\s+WHERE\s+group_id`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "joined_at"}).AddRow("u1", "admin", now))
	mock.ExpectExec(`INSERT\s+INTO\s+group_members`).
		WithArgs("g1", "u2", "member", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+groups\s+SET\s+last_activity`).
		WithArgs("g1", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+group_message_receipts\s+WHERE\s+user_id\s*=\s*\$2`).
		WithArgs("g1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	g, err := s.AddMember(context.Background(), "g1", "u2", "", now.Add(time.Hour))
	req.NoError(err)
	req.True(g.IsMember("u2"))
	req.Equal(now.Add(time.Hour), g.LastActivity)
}

func TestRemoveMember_AdminIsRefused(t *testing.T) {
	s, mock := newStoreWithMock(t)
	groupCols := []string{"id", "name", "description", "admin", "max_members", "is_private", "allow_member_invites", "allow_file_sharing", "last_activity", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM\s+groups\s+WHERE\s+id`).
		WillReturnRows(sqlmock.NewRows(groupCols).AddRow("g1", "team", "", "u1", 100, false, true, true, now, now))
	mock.ExpectQuery(`FROM\s+group_members`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "joined_at"}).AddRow("u1", "admin", now))
	mock.ExpectRollback()

	_, err := s.RemoveMember(context.Background(), "g1", "u1", now)
	require.ErrorIs(t, err, domain.ErrAdminRemoval)
}
