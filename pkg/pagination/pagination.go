package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size when neither caller nor endpoint picks one.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit applies DefaultLimit and MaxLimit.
func NormalizeLimit(limit int) int {
	return NormalizeLimitWithDefault(limit, DefaultLimit)
}

// NormalizeLimitWithDefault lets an endpoint choose its own page size.
func NormalizeLimitWithDefault(limit, def int) int {
	if def <= 0 {
		def = DefaultLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor builds the opaque cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor. An empty string yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: ts.UTC(), ID: id}, nil
}

// NewestFirst orders by created_at, id descending and seeks past cursor.
// table qualifies the columns when the query joins.
func NewestFirst(query *gorm.DB, table string, cursor *Cursor) *gorm.DB {
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}
	if cursor != nil {
		query = query.Where(
			fmt.Sprintf("(%s < ?) OR (%s = ? AND %s < ?)", col("created_at"), col("created_at"), col("id")),
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	return query.Order(col("created_at") + " DESC").Order(col("id") + " DESC")
}

// Page is one slice of a cursor-paginated list.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Trim cuts rows fetched with limit+1 down to limit and derives the next cursor from the last kept row.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	rows = rows[:limit]
	return Page[T]{Items: rows, NextCursor: EncodeCursor(cursorOf(rows[len(rows)-1]))}
}
