package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

// QueryReader reads typed query parameters and collects every problem so a
// caller can report all bad fields in one response.
type QueryReader struct {
	values   url.Values
	problems map[string]string
}

func Query(r *http.Request) *QueryReader {
	return &QueryReader{values: r.URL.Query()}
}

func (q *QueryReader) fail(key, msg string) {
	if q.problems == nil {
		q.problems = map[string]string{}
	}
	q.problems[key] = msg
}

// String returns the trimmed value of key, empty when absent.
func (q *QueryReader) String(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

// Int returns key as an int within [min, max], or def when absent.
func (q *QueryReader) Int(key string, def, min, max int) int {
	raw := q.String(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		q.fail(key, "must be a whole number")
	case value < min || value > max:
		q.fail(key, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	default:
		return value
	}
	return def
}

// Bool returns nil when key is absent.
func (q *QueryReader) Bool(key string) *bool {
	raw := q.String(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(key, "must be true or false")
		return nil
	}
	return &value
}

// Err reports the collected problems as a validation error.
func (q *QueryReader) Err() error {
	if len(q.problems) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameters").WithDetails(q.problems)
}

// QueryValue parses key with parse and returns nil when it is absent.
func QueryValue[T any](q *QueryReader, key string, parse func(string) (T, error)) *T {
	raw := q.String(key)
	if raw == "" {
		return nil
	}
	value, err := parse(raw)
	if err != nil {
		q.fail(key, err.Error())
		return nil
	}
	return &value
}
