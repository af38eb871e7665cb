package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/auth"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a task
// with a 2000-character description.
const maxBodyBytes = 1 << 20

// validate checks request shape (required fields, enums, ranges) before a
// request reaches a service. Business rules stay in the services.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report "taskIds", not "TaskIDs", so the field matches the JSON the
	// client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the body into dst and runs its validate tags.
// All failures come back as validation AppErrors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return apperror.ValidationFailed("body", "invalid request")
	}
	return nil
}

// fieldError turns the first failed rule into a readable message.
func fieldError(fe validator.FieldError) *apperror.AppError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "oneof":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	case "min":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must have at least %s entries", field, fe.Param()))
	case "max":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must have at most %s entries", field, fe.Param()))
	case "gt", "gte":
		return apperror.ValidationFailed(field, field+" must be a positive number")
	}
	return apperror.ValidationFailed(field, field+" is invalid")
}

// userID returns the authenticated caller. Every route using it sits
// behind auth.RequireAuth, so a miss means the route was mounted wrong.
func userID(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperror.Unauthorized("valid authentication required")
	}
	return id, nil
}

// pathID parses a positive integer URL parameter such as {id}.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be a number")
	}
	return n, nil
}

// queryID returns nil when the parameter is absent.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperror.ValidationFailed(name, name+" must be a positive number")
	}
	return &id, nil
}

// queryBool accepts the strconv.ParseBool spellings; absent is false.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.ValidationFailed(name, name+" must be true or false")
	}
	return b, nil
}

// nullable distinguishes a field that was left out of a JSON body from one
// that was sent as null:
//
//	{}                    → Set=false          (leave alone)
//	{"assigneeId": null}  → Set=true, nil      (clear)
//	{"assigneeId": 4}     → Set=true, &4       (change)
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// cleared reports an explicit null.
func (n nullable[T]) cleared() bool { return n.Set && n.Value == nil }
