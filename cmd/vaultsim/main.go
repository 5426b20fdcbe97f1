// Command vaultsim stands up two vaults joined by the in-process loopback
// transport, runs a cross-chain swap and a liquidity migration between them,
// and serves Prometheus metrics while doing so. It exists to exercise the full
// engine end to end without a chain.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unitvault/config"
	"unitvault/fixedpoint"
	"unitvault/native/vault"
	"unitvault/observability"
	"unitvault/observability/logging"
	"unitvault/transport"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	metricsAddr := flag.String("metrics", "", "Address to serve Prometheus metrics on (empty disables)")
	amount := flag.Int64("amount", 100, "Whole tokens to swap cross-chain")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("UNITVAULT_ENV"))
	logger := logging.Setup("vaultsim", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	bank := vault.NewMemoryBank()
	lb := transport.NewLoopback(logger)
	emitter := observability.MetricsEmitter{}

	operator := common.HexToAddress("0x0000000000000000000000000000000000000001")
	trader := common.HexToAddress("0x0000000000000000000000000000000000000002")
	chainIf := common.HexToAddress("0x0000000000000000000000000000000000000003")
	channel := "loopback-0"

	mkVault := func(name string, seed byte) *vault.Vault {
		tokens := []common.Address{
			common.BytesToAddress([]byte{seed, 0x01}),
			common.BytesToAddress([]byte{seed, 0x02}),
		}
		for _, tok := range tokens {
			bank.Mint(tok, operator, wad(1_000))
			bank.Mint(tok, trader, wad(1_000_000))
		}
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
		v, err := vault.New(vault.Params{
			ID:               common.BytesToHash(id[:]),
			Address:          common.BytesToAddress([]byte{seed, 0xff}),
			Tokens:           tokens,
			Weights:          []*big.Int{big.NewInt(1), big.NewInt(1)},
			Balances:         []*big.Int{wad(1_000), wad(1_000)},
			Depositor:        operator,
			SetupMaster:      operator,
			FactoryOwner:     operator,
			FeeAdministrator: operator,
			ChainInterface:   chainIf,
			VaultFee:         big.NewInt(1e15), // 0.1%
			Config:           cfg,
			Bank:             bank,
			Sender:           lb,
			Emitter:          emitter,
		})
		if err != nil {
			logger.Error("failed to build vault", "vault", name, "err", err)
			os.Exit(1)
		}
		lb.Register(v.ID(), vault.NewEndpoint(v))
		return v
	}

	left := mkVault("left", 0xa0)
	right := mkVault("right", 0xb0)
	for _, pair := range [][2]*vault.Vault{{left, right}, {right, left}} {
		if err := pair[0].SetConnection(operator, channel, pair[1].ID(), true); err != nil {
			logger.Error("failed to connect vaults", "err", err)
			os.Exit(1)
		}
	}
	if err := left.FinishSetup(operator); err != nil {
		logger.Error("finish setup", "err", err)
		os.Exit(1)
	}
	if err := right.FinishSetup(operator); err != nil {
		logger.Error("finish setup", "err", err)
		os.Exit(1)
	}
	logger.Info("vaults ready", "left", left.ID(), "right", right.ID())

	// Cross-chain asset swap: left token 0 -> right token 1.
	fromToken := common.BytesToAddress([]byte{0xa0, 0x01})
	toToken := common.BytesToAddress([]byte{0xb0, 0x02})
	before := bank.BalanceOf(toToken, trader)
	units, err := left.SendAsset(trader, channel, right.ID(), common.BytesToHash(trader.Bytes()),
		fromToken, 1, wad(*amount), nil, trader, common.Hash{}, nil)
	if err != nil {
		logger.Error("cross-chain swap failed", "err", err)
		os.Exit(1)
	}
	received := new(big.Int).Sub(bank.BalanceOf(toToken, trader), before)
	logger.Info("cross-chain swap settled",
		"amount_in", wad(*amount), "units", units, "amount_out", received)

	// Liquidity migration: a tenth of the operator's shares move right.
	shares := new(big.Int).Quo(left.ShareBalanceOf(operator), big.NewInt(10))
	units, err = left.SendLiquidity(operator, channel, right.ID(), common.BytesToHash(operator.Bytes()),
		shares, nil, nil, operator, common.Hash{}, nil)
	if err != nil {
		logger.Error("liquidity migration failed", "err", err)
		os.Exit(1)
	}
	logger.Info("liquidity migrated",
		"shares_burned", shares, "units", units,
		"shares_minted", right.ShareBalanceOf(operator))

	fmt.Printf("swap: %s in -> %s out (%s units)\n", wad(*amount), received, units)
	fmt.Printf("remaining inbound capacity right: %s\n", right.SecurityCapacity())
}

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.WAD)
}
