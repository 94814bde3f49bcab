package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// invalidParam reports a bad query or path parameter in the same
// field -> message shape DecodeJSONBody uses.
func invalidParam(name, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid parameter "+name).
		WithDetails(map[string]string{name: problem})
}

// optionalQuery parses r's query parameter key, or returns fallback when it
// is absent or blank.
func optionalQuery[T any](r *http.Request, key string, fallback T, parse func(string) (T, error), problem string) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, invalidParam(key, problem)
	}
	return v, nil
}

// ParseQueryInt reads an optional integer bounded to [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	v, err := optionalQuery(r, key, fallback, strconv.Atoi, "must be an integer")
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, invalidParam(key, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return v, nil
}

func ParseQueryBool(r *http.Request, key string, fallback bool) (bool, error) {
	return optionalQuery(r, key, fallback, strconv.ParseBool, "must be true or false")
}

// ParseUUIDParam reads a required UUID from the chi route.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, invalidParam(name, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalidParam(name, "must be a uuid")
	}
	return id, nil
}
