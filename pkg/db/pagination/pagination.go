// Package pagination implements cursor-based paging for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// Pagination carries the caller-supplied paging parameters.
type Pagination struct {
	PageToken string `form:"page_token" json:"page_token"`
	PageSize  int    `form:"page_size" json:"page_size"`
}

// PageInfo describes the paging state of a list response.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor is the decoded position of a page token.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

var ErrInvalidPageToken = errors.New("invalid_page_token")

// EncodeCursor serializes a cursor into an opaque page token.
func EncodeCursor(cursor Cursor) (string, error) {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses an opaque page token back into a cursor.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, ErrInvalidPageToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidPageToken
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return Cursor{}, ErrInvalidPageToken
	}
	if cursor.ID == "" {
		return Cursor{}, ErrInvalidPageToken
	}
	return cursor, nil
}

// BuildCursorPageInfo inspects a page fetched with limit+1 and builds the
// paging metadata. tokenFn produces the page token for the last visible row.
func BuildCursorPageInfo[T any](items []*T, pageSize int32, tokenFn func(*T) string) *PageInfo {
	info := &PageInfo{}
	if pageSize <= 0 || len(items) <= int(pageSize) {
		return info
	}

	last := items[pageSize-1]
	if last == nil {
		return info
	}
	info.HasMore = true
	info.NextPageToken = tokenFn(last)
	return info
}
