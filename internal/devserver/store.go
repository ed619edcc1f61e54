package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/grokteam/grokteam/internal/chat"
)

// ErrConversationNotFound is returned for an unknown conversation ID.
var ErrConversationNotFound = errors.New("conversation not found")

const lastMessagePreview = 160

// conversationRecord is the conversations table.
type conversationRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Title     string    `gorm:"size:200;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
}

func (conversationRecord) TableName() string {
	return "conversations"
}

// messageRecord is the messages table. Trace entries are stored as JSON text.
type messageRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"index;size:36;not null"`
	Role           string `gorm:"size:20;not null"`
	Content        string `gorm:"type:text"`
	Thoughts       string `gorm:"type:text"`
	Duration       float64
	Error          string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (messageRecord) TableName() string {
	return "messages"
}

// Store persists conversations for the development backend.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (and migrates) a sqlite database. ":memory:" gives a
// throwaway store.
func OpenStore(dsn string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}

	// Every pooled connection to ":memory:" would be a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&conversationRecord{}, &messageRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create creates an empty conversation.
func (s *Store) Create(ctx context.Context, title string) (*chat.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = chat.DefaultConversationTitle
	}

	rec := &conversationRecord{ID: uuid.NewString(), Title: title}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &chat.Conversation{ID: rec.ID, Title: rec.Title, Messages: []chat.Message{}}, nil
}

// Get returns a conversation with its messages in insertion order.
func (s *Store) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	var rec conversationRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var rows []messageRecord
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	conv := &chat.Conversation{ID: rec.ID, Title: rec.Title, Messages: make([]chat.Message, 0, len(rows))}
	for _, row := range rows {
		msg, err := row.toMessage()
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

// Exists reports whether a conversation exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&conversationRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to look up conversation: %w", err)
	}
	return n > 0, nil
}

// summaryRow is the shape of the list query.
type summaryRow struct {
	ID           string
	Title        string
	UpdatedAt    time.Time
	LastMessage  string
	MessageCount int
}

// List returns summaries, most recently updated first. A non-empty query
// matches titles and message text, case-insensitively.
func (s *Store) List(ctx context.Context, query string) ([]chat.ConversationSummary, error) {
	q := s.db.WithContext(ctx).
		Table("conversations AS c").
		Select(`c.id, c.title, c.updated_at,
			COALESCE((SELECT m.content FROM messages m WHERE m.conversation_id = c.id ORDER BY m.id DESC LIMIT 1), '') AS last_message,
			(SELECT COUNT(*) FROM messages m2 WHERE m2.conversation_id = c.id) AS message_count`)

	if needle := strings.ToLower(strings.TrimSpace(query)); needle != "" {
		like := "%" + needle + "%"
		q = q.Where(`lower(c.title) LIKE ? OR EXISTS (
			SELECT 1 FROM messages m WHERE m.conversation_id = c.id AND lower(m.content) LIKE ?)`, like, like)
	}

	var rows []summaryRow
	if err := q.Order("c.updated_at DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	out := make([]chat.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, chat.ConversationSummary{
			ID:           r.ID,
			Title:        r.Title,
			LastMessage:  preview(r.LastMessage),
			UpdatedAt:    r.UpdatedAt,
			MessageCount: r.MessageCount,
		})
	}
	return out, nil
}

// AddMessage appends a message and bumps the conversation's UpdatedAt.
func (s *Store) AddMessage(ctx context.Context, conversationID string, msg chat.Message) error {
	row, err := newMessageRecord(conversationID, msg)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&conversationRecord{}).Where("id = ?", conversationID).Update("updated_at", time.Now())
		if res.Error != nil {
			return fmt.Errorf("failed to touch conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		return nil
	})
}

// UpdateTitle renames a conversation.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	res := s.db.WithContext(ctx).Model(&conversationRecord{}).Where("id = ?", id).
		Updates(map[string]any{"title": title, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Delete removes a conversation and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&messageRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		res := tx.Delete(&conversationRecord{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

func newMessageRecord(conversationID string, msg chat.Message) (*messageRecord, error) {
	row := &messageRecord{
		ConversationID: conversationID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Duration:       msg.DurationSeconds,
		Error:          msg.Error,
	}
	if msg.CreatedAt != nil {
		row.CreatedAt = *msg.CreatedAt
	}
	if len(msg.Trace) > 0 {
		data, err := json.Marshal(msg.Trace)
		if err != nil {
			return nil, fmt.Errorf("failed to encode thoughts: %w", err)
		}
		row.Thoughts = string(data)
	}
	return row, nil
}

func (r messageRecord) toMessage() (chat.Message, error) {
	created := r.CreatedAt
	msg := chat.Message{
		Role:            chat.Role(r.Role),
		Content:         r.Content,
		DurationSeconds: r.Duration,
		Error:           r.Error,
		CreatedAt:       &created,
	}
	if r.Thoughts != "" {
		if err := json.Unmarshal([]byte(r.Thoughts), &msg.Trace); err != nil {
			return chat.Message{}, fmt.Errorf("failed to decode thoughts of message %d: %w", r.ID, err)
		}
	}
	return msg, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= lastMessagePreview {
		return s
	}
	return string(r[:lastMessagePreview])
}
