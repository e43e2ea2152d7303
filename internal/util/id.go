package util

import (
	"strings"

	"github.com/google/uuid"
)

func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + strings.ReplaceAll(id, "-", "")
}
