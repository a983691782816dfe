package handler // handler holds the echo HTTP handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// validate is shared by the account, address and contact handlers; a
// validator caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// getUserID extracts the user_id set by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// validationMessages turns validator errors into one message per field, in
// struct order.  messages is keyed by struct field name; fields without an
// entry get "<field> is invalid.".
func validationMessages(err error, messages map[string]string) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request."}
	}
	out := make([]string, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.StructField()] {
			continue
		}
		seen[fe.StructField()] = true
		if m, ok := messages[fe.StructField()]; ok {
			out = append(out, m)
		} else {
			out = append(out, fe.Field()+" is invalid.")
		}
	}
	return out
}
