package repository

import (
	"fmt"
	"strings"

	"go-tube-auth/internal/model"
)

// updateAssignments turns the non-nil fields of update into "column = <placeholder>"
// fragments, numbering placeholders from 1 with the dialect's style.
func updateAssignments(update model.UserUpdate, placeholder func(n int) string) ([]string, []any) {
	fields := []struct {
		column string
		value  *string
		lower  bool
	}{
		{"full_name", update.FullName, false},
		{"email", update.Email, true},
		{"password_hash", update.PasswordHash, false},
		{"refresh_token", update.RefreshToken, false},
		{"avatar", update.Avatar, false},
		{"cover_image", update.CoverImage, false},
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		value := *f.value
		if f.lower {
			value = normalize(value)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", f.column, placeholder(len(args))))
	}

	return sets, args
}

// normalize is the case folding applied to usernames and emails before any
// uniqueness check or write.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
