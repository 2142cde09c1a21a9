package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validEnum(value, allowed string) bool {
	return validate.Var(value, "required,oneof="+allowed) == nil
}

// signTime renders a timestamp the way postgres will hand it back:
// UTC, microsecond precision.
func signTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}
