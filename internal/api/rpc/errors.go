package rpc

import (
	"errors"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

const (
	codeInvalidParams = -32602
	codeMethodMissing = -32601
	codeInternal      = -32603
	codeDomain        = -32000
	codeUnauthorized  = -32001
)

func invalidParams() *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "invalid params"}
}

func methodNotFound() *rpcError {
	return &rpcError{Code: codeMethodMissing, Message: "method not found"}
}

// domainError maps service sentinels onto JSON-RPC errors, keeping the
// sentinel text as the client-visible reason. Anything unrecognized is an
// internal error and stays opaque.
func domainError(err error) *rpcError {
	for _, sentinel := range []error{
		model.ErrAlreadyRegistered,
		model.ErrNotRegistered,
		model.ErrRecipientNotRegistered,
		model.ErrAuthenticationFailed,
		model.ErrIndexOutOfRange,
		model.ErrGrantNotFound,
		model.ErrInsufficientPayment,
	} {
		if errors.Is(err, sentinel) {
			return &rpcError{Code: codeDomain, Message: sentinel.Error()}
		}
	}
	if errors.Is(err, model.ErrNotFound) {
		return &rpcError{Code: codeDomain, Message: model.ErrNotFound.Error()}
	}
	return &rpcError{Code: codeInternal, Message: "internal error"}
}
