package rpc

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dcriggs/eth-password-manager/internal/service"
)

func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *rpcError) {
	if result, rpcErr, ok := h.dispatchRegistry(ctx, method, params); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := h.dispatchVault(ctx, method, params); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := h.dispatchSharing(ctx, method, params); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := h.dispatchAuth(ctx, method, params); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := h.dispatchBlob(ctx, method, params); ok {
		return result, rpcErr
	}
	if method == "health_check" {
		return map[string]string{"status": "ok"}, nil
	}
	return nil, methodNotFound()
}

func (h *Handler) caller(ctx context.Context) (common.Address, *rpcError) {
	caller, ok := h.ctxMgr.GetCallerFromContext(ctx)
	if !ok {
		return common.Address{}, &rpcError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	return caller, nil
}

func (h *Handler) dispatchRegistry(ctx context.Context, method string, raw json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "pm_registerUser":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[registerUserParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		account, err := h.registry.RegisterUser(ctx, service.RegisterParams{
			Caller:    caller,
			PublicKey: params.PublicKey,
			AuthHash:  params.AuthHash,
			Payment:   params.PaymentWei.ToInt(),
		})
		if err != nil {
			return nil, domainError(err), true
		}
		return toAccountResult(account), nil, true

	case "pm_isUserRegistered":
		params, rpcErr := decodeParams[addressParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		registered, err := h.registry.IsUserRegistered(ctx, params.Address)
		if err != nil {
			return nil, domainError(err), true
		}
		return registered, nil, true

	case "pm_getUserPublicKey":
		params, rpcErr := decodeParams[addressParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		publicKey, err := h.registry.GetUserPublicKey(ctx, params.Address)
		if err != nil {
			return nil, domainError(err), true
		}
		return hexutil.Bytes(publicKey), nil, true

	case "pm_authenticateUser":
		params, rpcErr := decodeParams[authenticateUserParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		ok, err := h.registry.AuthenticateUser(ctx, params.Address, params.AuthHash)
		if err != nil {
			return nil, domainError(err), true
		}
		return ok, nil, true

	case "pm_updateRegistrationPassword":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[updateRegistrationPasswordParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if err := h.registry.UpdateRegistrationPassword(ctx, caller, params.OldAuthHash, params.NewAuthHash); err != nil {
			return nil, domainError(err), true
		}
		return true, nil, true
	}
	return nil, nil, false
}

func (h *Handler) dispatchVault(ctx context.Context, method string, raw json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "pm_storePassword":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[storePasswordParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		record, err := h.vault.StorePassword(ctx, caller, service.RecordParams{
			Website:  params.Website,
			UserName: params.UserName,
			Payload:  params.Payload,
			AuthHash: params.AuthHash,
		})
		if err != nil {
			return nil, domainError(err), true
		}
		return toRecordResult(record), nil, true

	case "pm_getPasswords":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[getPasswordsParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		records, err := h.vault.GetPasswords(ctx, caller, params.AuthHash)
		if err != nil {
			return nil, domainError(err), true
		}
		return toRecordResults(records), nil, true

	case "pm_updatePasswordDetails":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[updatePasswordDetailsParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		err := h.vault.UpdatePasswordDetails(ctx, caller, params.Index, service.RecordParams{
			Website:  params.Website,
			UserName: params.UserName,
			Payload:  params.Payload,
			AuthHash: params.AuthHash,
		})
		if err != nil {
			return nil, domainError(err), true
		}
		return true, nil, true

	case "pm_deletePassword":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[deletePasswordParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if err := h.vault.DeletePassword(ctx, caller, params.Index, params.AuthHash); err != nil {
			return nil, domainError(err), true
		}
		return true, nil, true
	}
	return nil, nil, false
}

func (h *Handler) dispatchSharing(ctx context.Context, method string, raw json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "pm_sharePassword":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[sharePasswordParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		grant, err := h.sharing.SharePassword(ctx, caller, params.Recipient, params.Name, params.DataHash)
		if err != nil {
			return nil, domainError(err), true
		}
		return toGrantResult(grant), nil, true

	case "pm_getSharedPasswordsReceived":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[sharedReceivedParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		grants, err := h.sharing.GetSharedPasswordsReceived(ctx, caller, params.Sender)
		if err != nil {
			return nil, domainError(err), true
		}
		return toGrantResults(grants), nil, true

	case "pm_getAllSharedPasswordsReceived":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		grants, err := h.sharing.GetAllSharedPasswordsReceived(ctx, caller)
		if err != nil {
			return nil, domainError(err), true
		}
		return toGrantResults(grants), nil, true

	case "pm_getAllSharedPasswordsSent":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		grants, err := h.sharing.GetAllSharedPasswordsSent(ctx, caller)
		if err != nil {
			return nil, domainError(err), true
		}
		return toGrantResults(grants), nil, true

	case "pm_revokeSharedPassword":
		caller, rpcErr := h.caller(ctx)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[sharePasswordParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if err := h.sharing.RevokeSharedPassword(ctx, caller, params.Recipient, params.Name, params.DataHash); err != nil {
			return nil, domainError(err), true
		}
		return true, nil, true
	}
	return nil, nil, false
}

func (h *Handler) dispatchAuth(ctx context.Context, method string, raw json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "auth_challenge":
		params, rpcErr := decodeParams[challengeParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		challenge, err := h.auth.Challenge(ctx, params.Address)
		if err != nil {
			return nil, domainError(err), true
		}
		return challengeResult{SessionID: challenge.SessionID, Message: challenge.Message}, nil, true

	case "auth_login":
		params, rpcErr := decodeParams[loginParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		access, refresh, err := h.auth.Login(ctx, params.SessionID, params.Signature)
		if err != nil {
			return nil, domainError(err), true
		}
		return tokenPairResult{AccessToken: access, RefreshToken: refresh}, nil, true

	case "auth_refresh":
		params, rpcErr := decodeParams[refreshParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		access, refresh, err := h.auth.Refresh(ctx, params.RefreshToken)
		if err != nil {
			return nil, domainError(err), true
		}
		return tokenPairResult{AccessToken: access, RefreshToken: refresh}, nil, true

	case "auth_logout":
		params, rpcErr := decodeParams[refreshParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if err := h.auth.Logout(ctx, params.RefreshToken); err != nil {
			return nil, domainError(err), true
		}
		return true, nil, true
	}
	return nil, nil, false
}

func (h *Handler) dispatchBlob(ctx context.Context, method string, raw json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "blob_put":
		if _, rpcErr := h.caller(ctx); rpcErr != nil {
			return nil, rpcErr, true
		}
		params, rpcErr := decodeParams[blobPutParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if len(params.Data) == 0 {
			return nil, invalidParams(), true
		}
		hash, err := h.blobs.Put(ctx, params.Data)
		if err != nil {
			return nil, domainError(err), true
		}
		return blobResult{Hash: hash}, nil, true

	case "blob_get":
		params, rpcErr := decodeParams[blobGetParams](raw)
		if rpcErr != nil {
			return nil, rpcErr, true
		}
		if params.Hash == "" {
			return nil, invalidParams(), true
		}
		data, err := h.blobs.Get(ctx, params.Hash)
		if err != nil {
			return nil, domainError(err), true
		}
		return blobResult{Hash: params.Hash, Data: data}, nil, true
	}
	return nil, nil, false
}
