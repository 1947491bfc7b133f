package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

type callerContextKey struct{}

var _ model.ContextManager = (*ContextManager)(nil)

// ContextManager stashes the authenticated caller address in the request
// context under an unexported key.
type ContextManager struct{}

func NewContextManager() *ContextManager {
	return &ContextManager{}
}

func (m *ContextManager) SetCallerToContext(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

func (m *ContextManager) GetCallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(common.Address)
	return caller, ok
}
