// Copyright 2025 Certen Protocol
//
// EVM Ledger Adapter
// Anchors a note via a zero-value self-transfer whose calldata carries the
// note bytes, mirroring the memo-field pattern used on account-model chains
// without opaque-memo support.

package anchor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMAdapter submits anchor notes to an EVM-compatible chain as the
// calldata of a zero-value self-transfer.
type EVMAdapter struct {
	client      *ethclient.Client
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	chainID     *big.Int
	network     string
	explorerFmt string // printf template with one %s for the tx hash
}

// NewEVMAdapter dials rpcURL and derives the signer address from
// privateKeyHex. network and explorerFmt are cosmetic, used only to
// populate Record.
func NewEVMAdapter(ctx context.Context, rpcURL, privateKeyHex, network, explorerFmt string) (*EVMAdapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("anchor: dial evm rpc: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("anchor: parse private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("anchor: fetch chain id: %w", err)
	}

	return &EVMAdapter{
		client:      client,
		privateKey:  privateKey,
		fromAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:     chainID,
		network:     network,
		explorerFmt: explorerFmt,
	}, nil
}

// Submit sends a zero-value self-transfer carrying noteBytes as calldata.
// Classifies insufficient funds and malformed-transaction errors as
// PermanentError; network/timeout errors as TransientError.
func (a *EVMAdapter) Submit(ctx context.Context, noteBytes []byte) (*Record, error) {
	nonce, err := a.client.PendingNonceAt(ctx, a.fromAddress)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("fetch nonce: %w", err)}
	}

	gasTipCap, err := a.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("suggest gas tip cap: %w", err)}
	}
	head, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("fetch head: %w", err)}
	}
	gasFeeCap := new(big.Int).Add(gasTipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   a.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       21000 + uint64(len(noteBytes))*16,
		To:        &a.fromAddress,
		Value:     big.NewInt(0),
		Data:      noteBytes,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), a.privateKey)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("sign transaction: %w", err)}
	}

	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		if isPermanentSendError(err) {
			return nil, &PermanentError{Err: err}
		}
		return nil, &TransientError{Err: err}
	}

	explorerURL := ""
	if a.explorerFmt != "" {
		explorerURL = fmt.Sprintf(a.explorerFmt, signedTx.Hash().Hex())
	}

	return &Record{
		Chain:         "evm",
		Network:       a.network,
		TransactionID: signedTx.Hash().Hex(),
		BlockHeight:   0,
		Confirmations: 0,
		ExplorerURL:   explorerURL,
	}, nil
}

// Lookup fetches the calldata of a previously submitted transaction.
func (a *EVMAdapter) Lookup(ctx context.Context, transactionID string) ([]byte, error) {
	tx, _, err := a.client.TransactionByHash(ctx, common.HexToHash(transactionID))
	if err != nil {
		return nil, fmt.Errorf("anchor: lookup transaction: %w", err)
	}
	return tx.Data(), nil
}

// Close releases the underlying RPC connection.
func (a *EVMAdapter) Close() {
	a.client.Close()
}

func isPermanentSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	permanentSubstrings := []string{
		"insufficient funds",
		"nonce too low",
		"replacement transaction underpriced",
		"invalid sender",
		"intrinsic gas too low",
	}
	for _, s := range permanentSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
