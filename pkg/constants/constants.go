package constants

import (
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	TxKey     contextKey = "tx"
	PoolKey   contextKey = "pool"
	LoggerKey contextKey = "logger"
)

const DateLayout = "2006-01-02"

var Validate = validator.New(validator.WithRequiredStructEnabled())
