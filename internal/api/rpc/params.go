package rpc

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

// Params follow the eth JSON conventions: addresses and hashes as 0x-prefixed
// hex, byte blobs as hexutil.Bytes, wei amounts as hexutil.Big.

type addressParams struct {
	Address common.Address `json:"address"`
}

type registerUserParams struct {
	PublicKey  hexutil.Bytes `json:"publicKey"`
	AuthHash   common.Hash   `json:"authHash"`
	PaymentWei *hexutil.Big  `json:"paymentWei"`
}

type authenticateUserParams struct {
	Address  common.Address `json:"address"`
	AuthHash common.Hash    `json:"authHash"`
}

type updateRegistrationPasswordParams struct {
	OldAuthHash common.Hash `json:"oldAuthHash"`
	NewAuthHash common.Hash `json:"newAuthHash"`
}

type storePasswordParams struct {
	Website  string      `json:"website"`
	UserName string      `json:"userName"`
	Payload  string      `json:"payload"`
	AuthHash common.Hash `json:"authHash"`
}

type getPasswordsParams struct {
	AuthHash common.Hash `json:"authHash"`
}

type updatePasswordDetailsParams struct {
	Index    int         `json:"index"`
	Website  string      `json:"website"`
	UserName string      `json:"userName"`
	Payload  string      `json:"payload"`
	AuthHash common.Hash `json:"authHash"`
}

type deletePasswordParams struct {
	Index    int         `json:"index"`
	AuthHash common.Hash `json:"authHash"`
}

type sharePasswordParams struct {
	Recipient common.Address `json:"recipient"`
	Name      string         `json:"name"`
	DataHash  string         `json:"dataHash"`
}

type sharedReceivedParams struct {
	Sender common.Address `json:"sender"`
}

type challengeParams struct {
	Address common.Address `json:"address"`
}

type loginParams struct {
	SessionID string        `json:"sessionId"`
	Signature hexutil.Bytes `json:"signature"`
}

type refreshParams struct {
	RefreshToken string `json:"refreshToken"`
}

type blobPutParams struct {
	Data hexutil.Bytes `json:"data"`
}

type blobGetParams struct {
	Hash string `json:"hash"`
}

func decodeParams[T any](raw json.RawMessage) (T, *rpcError) {
	var params T
	if len(raw) == 0 || string(raw) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, invalidParams()
	}
	return params, nil
}

type accountResult struct {
	Address      common.Address `json:"address"`
	FeePaidWei   *hexutil.Big   `json:"feePaidWei"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

type recordResult struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Website   string    `json:"website"`
	UserName  string    `json:"userName"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type grantResult struct {
	ID        string         `json:"id"`
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Name      string         `json:"name"`
	DataHash  string         `json:"dataHash"`
	SharedAt  time.Time      `json:"sharedAt"`
}

type challengeResult struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type tokenPairResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type blobResult struct {
	Hash string        `json:"hash"`
	Data hexutil.Bytes `json:"data,omitempty"`
}

func toAccountResult(account model.Account) accountResult {
	return accountResult{
		Address:      account.Address,
		FeePaidWei:   (*hexutil.Big)(account.FeePaid),
		RegisteredAt: account.RegisteredAt,
	}
}

func toRecordResult(record model.PasswordRecord) recordResult {
	return recordResult{
		ID:        record.ID.String(),
		Index:     record.Position,
		Website:   record.Website,
		UserName:  record.UserName,
		Payload:   record.Payload,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toRecordResults(records []model.PasswordRecord) []recordResult {
	results := make([]recordResult, 0, len(records))
	for _, record := range records {
		results = append(results, toRecordResult(record))
	}
	return results
}

func toGrantResult(grant model.ShareGrant) grantResult {
	return grantResult{
		ID:        grant.ID.String(),
		Sender:    grant.Sender,
		Recipient: grant.Recipient,
		Name:      grant.Name,
		DataHash:  grant.DataHash,
		SharedAt:  grant.SharedAt,
	}
}

func toGrantResults(grants []model.ShareGrant) []grantResult {
	results := make([]grantResult, 0, len(grants))
	for _, grant := range grants {
		results = append(results, toGrantResult(grant))
	}
	return results
}
