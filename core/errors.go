package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput           = "UNIFIEDAUTH_BAD_INPUT"
	ErrorNoProvider         = "UNIFIEDAUTH_NO_PROVIDER"
	ErrorUserDeclined       = "UNIFIEDAUTH_USER_DECLINED"
	ErrorPropertyReadFailed = "UNIFIEDAUTH_PROPERTY_READ_FAILED"
	ErrorUserNotFound       = "UNIFIEDAUTH_USER_NOT_FOUND"
	ErrorUserExists         = "UNIFIEDAUTH_USER_EXISTS"
	ErrorNotAuthenticated   = "UNIFIEDAUTH_NOT_AUTHENTICATED"
	ErrorInternal           = "UNIFIEDAUTH_INTERNAL_ERROR"
)

var (
	ErrUserNotFound = errors.New("core: user not found")
	ErrUserExists   = errors.New("core: user already exists")
)

func NewUserNotFoundError(key string) *goerrors.Error {
	message := ErrUserNotFound.Error()
	if key = strings.TrimSpace(key); key != "" {
		message += ": " + key
	}
	return goerrors.Wrap(ErrUserNotFound, goerrors.CategoryNotFound, message).
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorUserNotFound)
}

func NewUserExistsError(key string) *goerrors.Error {
	message := ErrUserExists.Error()
	if key = strings.TrimSpace(key); key != "" {
		message += ": " + key
	}
	return goerrors.Wrap(ErrUserExists, goerrors.CategoryConflict, message).
		WithCode(http.StatusConflict).
		WithTextCode(ErrorUserExists)
}

func NewBadInputError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
}

// IsUserNotFound reports whether err (or a wrapped cause) is a missing user.
func IsUserNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserNotFound) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == ErrorUserNotFound
	}
	return false
}

func errorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case errors.Is(err, ErrUserNotFound):
		return newError(err.Error(), goerrors.CategoryNotFound, ErrorUserNotFound)
	case errors.Is(err, ErrUserExists), strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return newError(err.Error(), goerrors.CategoryConflict, ErrorUserExists)
	case strings.Contains(msg, "no ethereum provider"), strings.Contains(msg, "no wallet provider"):
		return newError(err.Error(), goerrors.CategoryOperation, ErrorNoProvider)
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"), strings.Contains(msg, "declined"):
		return newError(err.Error(), goerrors.CategoryAuth, ErrorUserDeclined)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorUserNotFound
	case goerrors.CategoryConflict:
		return ErrorUserExists
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorNotAuthenticated
	case goerrors.CategoryOperation:
		return ErrorNoProvider
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// MapError converts any error into the go-errors envelope used by the command
// and query layers.
func MapError(err error) *goerrors.Error {
	return errorMapper(err)
}
