package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"veloracloud/config"
	"veloracloud/observability/logging"
)

const (
	privateKeyEnv = "VELORA_PRIVATE_KEY"
	envEnv        = "VELORA_ENV"
)

func main() {
	configFile := flag.String("config", "./velora.toml", "Path to the configuration file")
	chainFlag := flag.Uint64("chain", 0, "Chain id to attach to (overrides DefaultChainID)")
	logFile := flag.String("log-file", "", "Mirror logs to a rotated file (overrides config LogFile)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logFile == "" {
		*logFile = cfg.LogFile
	}
	logger := logging.Setup("velora", strings.TrimSpace(os.Getenv(envEnv)), logging.Options{File: *logFile})

	chainID := cfg.DefaultChainID
	if *chainFlag != 0 {
		chainID = *chainFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, chainID, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "balance":
		address := ""
		if len(args) > 0 {
			address = args[0]
		}
		return a.balance(ctx, address)
	case "transfer":
		if len(args) < 2 {
			return usageError("transfer <to> <amount>")
		}
		return a.transfer(ctx, args[0], args[1])
	case "approve":
		if len(args) < 2 {
			return usageError("approve <spender> <amount>")
		}
		return a.approve(ctx, args[0], args[1])
	case "stake":
		if len(args) < 1 {
			return usageError("stake <amount>")
		}
		return a.stake(ctx, args[0])
	case "unstake":
		if len(args) < 1 {
			return usageError("unstake <amount>")
		}
		return a.unstake(ctx, args[0])
	case "claim":
		return a.claimRewards(ctx)
	case "staking-info":
		return a.stakingInfo(ctx)
	case "rent":
		if len(args) < 3 {
			return usageError("rent <node-id> <hours> <total-cost>")
		}
		hours, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid hours %q", args[1])
		}
		return a.rentNode(ctx, args[0], hours, args[2])
	case "node-info":
		if len(args) < 1 {
			return usageError("node-info <node-id>")
		}
		return a.nodeInfo(ctx, args[0])
	case "switch":
		if len(args) < 1 {
			return usageError("switch <chain-id>")
		}
		chainID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q", args[0])
		}
		return a.switchNetwork(ctx, chainID)
	case "watch":
		return a.watch(ctx)
	case "serve":
		return a.serve(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usageError(usage string) error {
	return fmt.Errorf("usage: velora %s", usage)
}

func printUsage() {
	fmt.Println(`Usage: velora [flags] <command> [args]

Commands:
  balance [address]                 Token balance (defaults to your account)
  transfer <to> <amount>            Send tokens
  approve <spender> <amount>        Approve a token allowance
  stake <amount>                    Stake tokens
  unstake <amount>                  Unstake tokens
  claim                             Claim staking rewards
  staking-info                      Show your staking position
  rent <node-id> <hours> <cost>     Rent a compute node
  node-info <node-id>               Show a node listing
  switch <chain-id>                 Switch the active network
  watch                             Stream on-chain activity for your account
  serve                             Run the dashboard gateway

Flags:
  -config string     Path to the configuration file (default "./velora.toml")
  -chain uint        Chain id to attach to
  -log-file string   Mirror logs to a rotated file

The signing key is read from ` + privateKeyEnv + `.`)
}
