package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookkeeper/pkg/constants"
	"github.com/iota-uz/bookkeeper/pkg/logging"
)

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the entry bound to ctx or a discarding one.
func UseLogger(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && l != nil {
		return l
	}
	return logging.Nop()
}
