// Package access decides who may use the bot and persists the allow-list.
package access

import (
	"context"
	"slices"
	"strconv"
	"strings"
)

// IDSet is a set of Telegram user ids.
type IDSet map[int64]struct{}

func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Store persists the allow-list.
type Store interface {
	Load(ctx context.Context) (IDSet, error)
	// Append adds id and reports whether it was absent before the call.
	Append(ctx context.Context, id int64) (bool, error)
}

// ParseID accepts a line of ASCII digits surrounded by optional whitespace.
func ParseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
