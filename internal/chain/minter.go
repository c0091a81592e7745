package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"blitz-trivia-service/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// tokenABI covers the only method the service calls on the reward token.
const tokenABI = `[{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}]`

// Config describes how to reach the reward token contract.
type Config struct {
	RPCURL     string
	Contract   string
	PrivateKey string // hex, with or without 0x
	Decimals   int32
}

// ContractMinter mints ERC20 tokens by calling mint(address,uint256) and waits
// for the transaction receipt before returning.
type ContractMinter struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	decimals int32
	log      *logger.Logger

	// one in-flight send at a time keeps nonces from colliding
	mu sync.Mutex
}

// NewContractMinter dials the RPC endpoint and binds the token contract.
func NewContractMinter(ctx context.Context, cfg Config, log *logger.Logger) (*ContractMinter, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("invalid token contract address %q", cfg.Contract)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse minter key: %w", err)
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	decimals := cfg.Decimals
	if decimals == 0 {
		decimals = 18
	}
	address := common.HexToAddress(cfg.Contract)
	return &ContractMinter{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		key:      key,
		chainID:  chainID,
		decimals: decimals,
		log:      log.With("component", "ContractMinter", "contract", address.Hex()),
	}, nil
}

// Mint sends the mint transaction and blocks until it is mined. A reverted
// receipt is reported as an error together with the transaction hash.
func (m *ContractMinter) Mint(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient %q", to)
	}
	units, err := ToBaseUnits(amount, m.decimals)
	if err != nil {
		return "", err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(m.key, m.chainID)
	if err != nil {
		return "", fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	m.mu.Lock()
	tx, err := m.contract.Transact(opts, "mint", common.HexToAddress(to), units)
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("send mint: %w", err)
	}
	hash := tx.Hash().Hex()
	m.log.Info("mint sent", "tx", hash, "to", to, "amount", amount.String())

	receipt, err := bind.WaitMined(ctx, m.client, tx)
	if err != nil {
		return hash, fmt.Errorf("wait for mint %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash, fmt.Errorf("mint %s reverted", hash)
	}
	return hash, nil
}

// Close releases the RPC connection.
func (m *ContractMinter) Close() {
	m.client.Close()
}

// ToBaseUnits converts a token amount into integer base units.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("mint amount must be positive, got %s", amount)
	}
	units := amount.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return units.BigInt(), nil
}
