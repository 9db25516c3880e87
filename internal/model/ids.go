package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Entity names used for id prefixes and id_sequences rows.
const (
	EntityProject = "proj"
	EntityTask    = "task"
)

// IDSequence is the per-user counter for one entity type. Next is the suffix the
// next generated id will get.
type IDSequence struct {
	UserID uint   `gorm:"primaryKey;autoIncrement:false"`
	Entity string `gorm:"primaryKey;size:16"`
	Next   int64  `gorm:"column:next_value;not null"`
}

// FormatID builds ids such as "task_12".
func FormatID(entity string, n int64) string {
	return fmt.Sprintf("%s_%d", entity, n)
}

// ParseID returns the numeric suffix of an id generated for entity.
func ParseID(entity, id string) (int64, bool) {
	raw, ok := strings.CutPrefix(id, entity+"_")
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	// reject "task_007" style ids, they would alias task_7
	if strconv.FormatInt(n, 10) != raw {
		return 0, false
	}
	return n, true
}
