package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"veloracloud/config"
	"veloracloud/contracts"
	"veloracloud/events"
	"veloracloud/gateway"
	"veloracloud/notify"
	"veloracloud/observability/logging"
	"veloracloud/observability/metrics"
	"veloracloud/storage"
	"veloracloud/txexec"
	"veloracloud/wallet"
)

// app wires the wallet session, contract handles and event plumbing for one
// CLI invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	center   *notify.Center
	provider *wallet.RPCProvider
	session  *wallet.Session
	registry *contracts.Registry
	executor *txexec.Executor
	feed     *events.Feed
	listener *events.Listener
	archive  *storage.Archive

	stopPrinter func()
}

func newApp(ctx context.Context, cfg *config.Config, chainID uint64, logger *slog.Logger) (*app, error) {
	keyHex := strings.TrimSpace(os.Getenv(privateKeyEnv))
	if keyHex == "" {
		return nil, fmt.Errorf("%s is not set", privateKeyEnv)
	}
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	logger.Info("signing key loaded",
		logging.MaskField("private_key", keyHex),
		slog.String("address", ethcrypto.PubkeyToAddress(key.PublicKey).Hex()))

	provider, err := wallet.NewRPCProvider(ctx, key, chainID, cfg.Endpoints())
	if err != nil {
		return nil, err
	}

	center := notify.NewCenter()
	session := wallet.NewSession(provider,
		wallet.WithNotifier(center),
		wallet.WithLogger(logger),
	)
	session.OnChange(func(s wallet.Snapshot) {
		metrics.Web3().SetConnected(s.Connected)
	})
	if err := session.Connect(ctx); err != nil {
		center.Close()
		_ = provider.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		center:   center,
		provider: provider,
		session:  session,
		registry: contracts.NewRegistry(session, provider, cfg.ContractAddresses()),
		executor: txexec.NewExecutor(session, center,
			txexec.WithLogger(logger),
			txexec.WithMetrics(metrics.Web3()),
		),
		feed: events.NewFeed(),
	}
	a.stopPrinter = a.printNotifications()
	return a, nil
}

// printNotifications mirrors every notification to stdout so CLI users see
// the same feedback the dashboard would.
func (a *app) printNotifications() func() {
	ch, cancel := a.center.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range ch {
			line := fmt.Sprintf("[%s] %s: %s", n.Severity, n.Title, n.Message)
			if n.TxHash != "" {
				line += " (" + n.TxHash + ")"
			}
			fmt.Println(line)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *app) Close() {
	if a.listener != nil {
		a.listener.Close()
	}
	a.registry.Close()
	a.session.Dispose()
	_ = a.provider.Close()
	if a.archive != nil {
		_ = a.archive.Close()
	}
	if a.stopPrinter != nil {
		a.stopPrinter()
	}
	a.center.Close()
}

// startListening opens the event archive and begins streaming logs for the
// connected account.
func (a *app) startListening() error {
	if path := a.cfg.EventArchivePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
		archive, err := storage.OpenArchive(path)
		if err != nil {
			return err
		}
		a.archive = archive
	}
	opts := []events.ListenerOption{
		events.WithNotifier(a.center),
		events.WithLogger(a.logger),
		events.WithMetrics(metrics.Web3()),
	}
	if a.archive != nil {
		opts = append(opts, events.WithArchive(a.archive))
	}
	a.listener = events.NewListener(a.session, a.provider, a.cfg.ContractAddresses(), a.feed, opts...)
	a.listener.Start()
	return nil
}

func (a *app) balance(ctx context.Context, address string) error {
	if address == "" {
		account, ok := a.session.Account()
		if !ok {
			return wallet.ErrNotConnected
		}
		address = account.Hex()
	}
	token := a.registry.Token()
	if token == nil {
		return wallet.ErrNotConnected
	}
	balance, err := token.BalanceOf(ctx, address)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s VLR\n", address, balance)
	return nil
}

func (a *app) transfer(ctx context.Context, to, amount string) error {
	return a.executor.Execute(ctx, "transfer", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Token().Transfer(ctx, to, amount)
	})
}

func (a *app) approve(ctx context.Context, spender, amount string) error {
	return a.executor.Execute(ctx, "approve", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Token().Approve(ctx, spender, amount)
	})
}

func (a *app) stake(ctx context.Context, amount string) error {
	return a.executor.Execute(ctx, "stake", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Staking().Stake(ctx, amount)
	})
}

func (a *app) unstake(ctx context.Context, amount string) error {
	return a.executor.Execute(ctx, "unstake", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Staking().Unstake(ctx, amount)
	})
}

func (a *app) claimRewards(ctx context.Context) error {
	return a.executor.Execute(ctx, "claim rewards", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Staking().ClaimRewards(ctx)
	})
}

func (a *app) stakingInfo(ctx context.Context) error {
	staking := a.registry.Staking()
	if staking == nil {
		return wallet.ErrNotConnected
	}
	account, _ := a.session.Account()
	staked, err := staking.StakedBalance(ctx, account.Hex())
	if err != nil {
		return err
	}
	rewards, err := staking.PendingRewards(ctx, account.Hex())
	if err != nil {
		return err
	}
	info, err := staking.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Staked:          %s VLR\n", staked)
	fmt.Printf("Pending rewards: %s VLR\n", rewards)
	fmt.Printf("Pool total:      %s VLR\n", info.TotalStaked)
	fmt.Printf("Minimum stake:   %s VLR\n", info.MinStakeAmount)
	return nil
}

func (a *app) rentNode(ctx context.Context, nodeID string, hours uint64, totalCost string) error {
	return a.executor.Execute(ctx, "rent node", func(ctx context.Context) (*txexec.Pending, error) {
		return a.registry.Marketplace().RentNode(ctx, nodeID, hours, totalCost)
	})
}

func (a *app) nodeInfo(ctx context.Context, nodeID string) error {
	marketplace := a.registry.Marketplace()
	if marketplace == nil {
		return wallet.ErrNotConnected
	}
	info, err := marketplace.NodeInfo(ctx, nodeID)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func (a *app) switchNetwork(ctx context.Context, chainID uint64) error {
	if err := a.session.SwitchNetwork(ctx, chainID); err != nil {
		return err
	}
	network, _ := a.cfg.NetworkFor(chainID)
	fmt.Printf("Switched to %s (chain %d)\n", network.Name, chainID)
	return nil
}

func (a *app) watch(ctx context.Context) error {
	if err := a.startListening(); err != nil {
		return err
	}
	fmt.Println("Watching on-chain activity; press Ctrl-C to stop.")
	<-ctx.Done()
	return nil
}

func (a *app) serve(ctx context.Context) error {
	if err := a.startListening(); err != nil {
		return err
	}
	opts := []gateway.Option{gateway.WithLogger(a.logger)}
	if a.archive != nil {
		opts = append(opts, gateway.WithArchive(a.archive))
	}
	server := gateway.NewServer(a.session, a.feed, a.center, opts...)
	return server.Serve(ctx, a.cfg.GatewayListen)
}
