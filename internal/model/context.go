package model

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ContextManager carries the authenticated caller address through a request.
type ContextManager interface {
	SetCallerToContext(ctx context.Context, caller common.Address) context.Context
	GetCallerFromContext(ctx context.Context) (common.Address, bool)
}
