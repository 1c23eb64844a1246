package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/address"
	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/config"
	"github.com/aman-zulfiqar/superswap-settlement/internal/fees"
	"github.com/aman-zulfiqar/superswap-settlement/internal/jupiter"
	"github.com/aman-zulfiqar/superswap-settlement/internal/relayer"
	"github.com/aman-zulfiqar/superswap-settlement/internal/signer"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "quote | settle | refund | status")
	orderID := flag.Uint64("order", 0, "order id")
	recipient := flag.String("recipient", "", "recipient wallet")
	outMint := flag.String("out", "", "destination mint")
	amount := flag.Uint64("amount", 0, "gross settlement amount in base units")
	minOut := flag.Uint64("min-out", 0, "minimum output; 0 derives it from a quote")
	slippageBps := flag.Int("slippage-bps", 50, "slippage in bps used when deriving min-out")
	source := flag.String("source", "", "relayer settlement asset account (default: relayer ATA)")
	deadline := flag.Duration("deadline", 2*time.Minute, "time until the settlement deadline")
	useJupiter := flag.Bool("jupiter", false, "derive min-out from a Jupiter quote instead of the pools")
	dest := flag.String("dest", "", "refund destination account (default: recipient ATA)")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var s *signer.Signer
	if *mode == "settle" || *mode == "refund" {
		var err error
		if s, err = signer.New(cfg.RelayerPrivateKey); err != nil {
			fail("failed to load relayer key:", err)
		}
	}

	client, err := relayer.NewClient(relayer.ClientConfig{
		BaseURL: cfg.CoordinatorURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
		Signer:  s,
	})
	if err != nil {
		fail("failed to init client:", err)
	}

	switch *mode {
	case "quote":
		gc, err := client.Config(ctx)
		if err != nil {
			fail("config failed:", err)
		}
		out := mustKey("-out", *outMint)
		if *amount == 0 {
			fail("missing -amount (must be > 0)")
		}
		net, err := fees.Net(*amount, gc.FeeBps)
		if err != nil {
			fail("fee split failed:", err)
		}
		q, err := client.AMMQuote(ctx, gc.SettlementMint, out, net, uint16(*slippageBps))
		if err != nil {
			fail("quote failed:", err)
		}
		fmt.Printf("pool=%s net_in=%d amount_out=%d min_out=%d price_impact=%.4f fee_bps=%d\n",
			q.PoolName, q.AmountIn, q.AmountOut, q.MinAmountOut, q.PriceImpact, q.FeeBps)

	case "settle":
		if *orderID == 0 || *amount == 0 {
			fail("missing -order or -amount")
		}
		gc, err := client.Config(ctx)
		if err != nil {
			fail("config failed:", err)
		}
		to := mustKey("-recipient", *recipient)
		out := mustKey("-out", *outMint)

		if cfg.PoolConfigPath == "" {
			fail("POOL_CONFIG_PATH is required to build the swap")
		}
		pools, err := amm.NewRegistry(solana.MustPublicKeyFromBase58(cfg.AMMProgramID), cfg.PoolConfigPath)
		if err != nil {
			fail("failed to load pools:", err)
		}
		pool, err := pools.FindPoolByMints(gc.SettlementMint, out)
		if err != nil {
			fail("no pool for pair:", err)
		}

		src := s.PublicKey()
		if *source != "" {
			src = mustKey("-source", *source)
		} else if src, err = address.AssociatedToken(s.PublicKey(), gc.SettlementMint); err != nil {
			fail("source address failed:", err)
		}

		minOutput := *minOut
		if minOutput == 0 {
			if minOutput, err = deriveMinOutput(ctx, client, cfg, gc.SettlementMint, out, *amount, gc.FeeBps, uint16(*slippageBps), *useJupiter); err != nil {
				fail("min-out derivation failed:", err)
			}
		}

		req, err := relayer.BuildPoolSettlement(solana.MustPublicKeyFromBase58(cfg.ProgramID), gc, pool, relayer.Intent{
			OrderID:         *orderID,
			Recipient:       to,
			GrossAmount:     *amount,
			MinOutput:       minOutput,
			DestinationMint: out,
			Deadline:        time.Now().Add(*deadline),
			Source:          src,
		})
		if err != nil {
			fail("failed to build settlement:", err)
		}

		receipt, err := client.Process(ctx, req)
		if receipt != nil {
			fmt.Printf("order=%d status=%s fee=%d swapped=%d output=%d\n",
				receipt.Order.OrderID, receipt.Order.Status, receipt.FeeAmount, receipt.SwapAmount, receipt.ObservedOutput)
		}
		if err != nil {
			fail("settle failed:", err)
		}

	case "refund":
		if *orderID == 0 {
			fail("missing -order")
		}
		o, err := client.Order(ctx, *orderID)
		if err != nil {
			fail("order lookup failed:", err)
		}
		var to solana.PublicKey
		if *dest != "" {
			to = mustKey("-dest", *dest)
		} else {
			gc, err := client.Config(ctx)
			if err != nil {
				fail("config failed:", err)
			}
			if to, err = address.AssociatedToken(o.Recipient, gc.SettlementMint); err != nil {
				fail("destination address failed:", err)
			}
		}
		refunded, err := client.Refund(ctx, *orderID, to)
		if err != nil {
			fail("refund failed:", err)
		}
		fmt.Printf("order=%d status=%s amount=%d destination=%s\n",
			refunded.OrderID, refunded.Status, refunded.GrossAmount, to)

	case "status":
		if *orderID == 0 {
			fail("missing -order")
		}
		o, err := client.Order(ctx, *orderID)
		if err != nil {
			fail("order lookup failed:", err)
		}
		fmt.Printf("order=%d status=%s gross=%d fee=%d output=%d recipient=%s\n",
			o.OrderID, o.Status, o.GrossAmount, o.FeeAmount, o.OutputAmount, o.Recipient)

	default:
		fmt.Println("unknown -mode:", *mode)
		os.Exit(2)
	}
}

// deriveMinOutput quotes the net amount and returns the slippage-adjusted
// minimum output.
func deriveMinOutput(ctx context.Context, client *relayer.Client, cfg *config.Config, in, out solana.PublicKey, gross uint64, feeBps, slippageBps uint16, useJupiter bool) (uint64, error) {
	net, err := fees.Net(gross, feeBps)
	if err != nil {
		return 0, err
	}
	if !useJupiter {
		q, err := client.AMMQuote(ctx, in, out, net, slippageBps)
		if err != nil {
			return 0, err
		}
		return q.MinAmountOut, nil
	}

	jc := jupiter.NewClient(jupiter.ClientConfig{
		BaseURL:           cfg.JupiterBaseURL,
		APIKey:            cfg.JupiterAPIKey,
		RequestsPerSecond: 1,
	})
	plan, err := jc.Plan(ctx, jupiter.QuoteRequest{
		InputMint:   in,
		OutputMint:  out,
		Amount:      net,
		SlippageBps: &slippageBps,
	}, 5)
	if err != nil {
		return 0, err
	}
	if plan.MinOutput == 0 {
		return 0, errors.New("quote returned zero minimum output")
	}
	return plan.MinOutput, nil
}

func mustKey(name, v string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		fail(fmt.Sprintf("invalid %s:", name), err)
	}
	return pk
}

func fail(msg string, args ...any) {
	fmt.Println(append([]any{msg}, args...)...)
	os.Exit(1)
}
