package errorinfo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/bookkeeper/pkg/serrors"
)

// ErrorInfo is the structured failure payload stored on imports and item details.
type ErrorInfo struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Stack   string   `json:"stack,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func FromMessages(message string, errs []string) *ErrorInfo {
	return &ErrorInfo{Message: message, Errors: errs}
}

// FromError captures message, code and the %+v rendering (frames for go-faster/errors)
// of err. Stack is cut to maxStack bytes when maxStack > 0.
func FromError(err error, maxStack int) *ErrorInfo {
	if err == nil {
		return nil
	}
	info := &ErrorInfo{
		Message: err.Error(),
		Code:    codeOf(err),
		Stack:   fmt.Sprintf("%+v", err),
	}
	if maxStack > 0 && len(info.Stack) > maxStack {
		info.Stack = info.Stack[:maxStack]
	}
	if info.Stack == info.Message {
		info.Stack = ""
	}
	return info
}

func codeOf(err error) string {
	if code := serrors.Code(err); code != "" {
		return code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
