package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" binding:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Normalize clamps the page size and resolves the page token into the last seen id.
func (p Pagination) Normalize() (afterID int64, pageSize int, err error) {
	pageSize = p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	token := strings.TrimSpace(p.PageToken)
	if token == "" {
		return 0, pageSize, nil
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		return 0, 0, err
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return 0, 0, err
	}
	return id.Int64(), pageSize, nil
}

// BuildCursorPageInfo trims the look-ahead row and returns the page slice with its page info.
func BuildCursorPageInfo[T any](data []*T, limit int, extractID func(*T) snowflake.ID) ([]*T, *PageInfo) {
	if len(data) == 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if limit > 0 && len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		token, err := EncodeCursor(Cursor{ID: extractID(data[len(data)-1]).String()})
		if err == nil {
			pageInfo.NextPageToken = token
		}
	}
	return data, pageInfo
}
