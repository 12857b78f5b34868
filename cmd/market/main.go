// Command market is a CLI client for the art marketplace contract.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/justart/artmarket/internal/chain"
	"github.com/justart/artmarket/internal/config"
	"github.com/justart/artmarket/internal/contracts"
	"github.com/justart/artmarket/internal/errs"
	"github.com/justart/artmarket/internal/market"
	"github.com/justart/artmarket/internal/model"
	"github.com/justart/artmarket/internal/wallet"
)

// ---- session store ----

type sessionFile struct {
	Account  string    `json:"account"`
	Provider string    `json:"provider"`
	SavedAt  time.Time `json:"saved_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "artmarket")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "artmarket")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }

func saveSession(account, provider string) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(sessionPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sessionFile{Account: account, Provider: provider, SavedAt: time.Now()})
}

func loadSession() (sessionFile, bool) {
	b, err := os.ReadFile(sessionPath())
	if err != nil {
		return sessionFile{}, false
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil || sf.Account == "" {
		return sessionFile{}, false
	}
	return sf, true
}

func clearSession() { _ = os.Remove(sessionPath()) }

// ---- interaction ----

// stdinChooser is the provider selection "modal": numbered list on stderr,
// choice on stdin, empty input aborts.
func stdinChooser(names []string) (string, error) {
	fmt.Fprintln(os.Stderr, "select a wallet provider:")
	for i, n := range names {
		fmt.Fprintf(os.Stderr, "  %d) %s\n", i+1, n)
	}
	fmt.Fprint(os.Stderr, "> ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", errs.ErrSelectionCancelled
	}
	line = strings.TrimSpace(line)
	if line == "" || line == "q" {
		return "", errs.ErrSelectionCancelled
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(names) {
		return "", fmt.Errorf("invalid choice %q", line)
	}
	return names[n-1], nil
}

func askPassphrase(account string) (string, error) {
	fmt.Fprintf(os.Stderr, "passphrase for %s: ", account)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}

// ---- output ----

// itemView converts base-unit prices to human-decimal strings for display
// only; model fields are never rewritten.
type itemView struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Location    string    `json:"location"`
	Price       string    `json:"price"`
	IsListed    bool      `json:"is_listed"`
	History     []txnView `json:"history,omitempty"`
}

type txnView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	From      string `json:"from"`
	Price     string `json:"price"`
	CreatedAt string `json:"created_at"`
}

func viewItem(it model.Item, decimals int32) itemView {
	v := itemView{
		ID:          it.ID,
		Owner:       it.Owner,
		Name:        it.Name,
		Description: it.Description,
		Image:       it.Image,
		Location:    it.Location,
		Price:       market.FromBaseUnits(it.Price, decimals),
		IsListed:    it.IsListed,
	}
	for _, tx := range it.History {
		v.History = append(v.History, txnView{
			ID:        tx.ID,
			Type:      string(tx.Type),
			From:      tx.From,
			Price:     market.FromBaseUnits(tx.Price, decimals),
			CreatedAt: tx.CreatedAt.Format(time.RFC3339),
		})
	}
	return v
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `market CLI
Usage:
  market [-v] <cmd> [args]

Commands:
  version
  connect                                  (select provider, saves session)
  status                                   (restore check + balance)
  disconnect
  items                                    (all listed items)
  item       -id <id>
  mine                                     (items owned by saved account)
  create     -name N -price P [-desc D] [-image URI] [-location L]
  approve    -amount <decimal>
  buy        -id <id>
  relist     -id <id> -price P [-location L]
  unlist     -id <id>

Config (env or .env): ARTMARKET_RPC_URL, ARTMARKET_CHAIN_ID,
  ARTMARKET_MARKET_ADDRESS, ARTMARKET_TOKEN_ADDRESS, ARTMARKET_TOKEN_DECIMALS,
  ARTMARKET_KEYSTORE_DIR, ARTMARKET_BRIDGE_URL
`)
	os.Exit(2)
}

// ---- wiring ----

type app struct {
	cfg    *config.Config
	sess   *wallet.Session
	market *market.Client
	log    *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	chainID := big.NewInt(cfg.ChainID)
	var providers []chain.Provider
	if cfg.KeystoreDir != "" {
		providers = append(providers, chain.NewKeystoreProvider(cfg.KeystoreDir, cfg.RPCURL, chainID, askPassphrase))
	}
	if cfg.BridgeURL != "" {
		providers = append(providers, chain.NewBridgeProvider(cfg.BridgeURL, cfg.RPCURL, chainID))
	}
	gw := chain.NewGateway(cfg.RPCURL, chainID, stdinChooser, providers...)

	ro, err := gw.DefaultReadOnlyClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	bindToken := func(c *chain.Client) contracts.TokenHandle {
		return contracts.BindToken(c, cfg.TokenAddress)
	}
	return &app{
		cfg:    cfg,
		sess:   wallet.NewSession(gw, ro, bindToken, cfg.TokenDecimals),
		market: market.New(cfg.TokenDecimals),
		log:    log,
	}, nil
}

func (a *app) bindMarket() *contracts.Marketplace {
	return contracts.BindMarketplace(a.sess.Client(), a.cfg.MarketAddress)
}

func (a *app) bindToken() contracts.TokenHandle {
	return contracts.BindToken(a.sess.Client(), a.cfg.TokenAddress)
}

// connect runs the interactive flow and persists the session for status/mine.
func (a *app) connect(ctx context.Context) (string, error) {
	if err := a.sess.Connect(ctx); err != nil {
		return "", err
	}
	account, _ := a.sess.Account()
	a.log.Info("connected", zap.String("account", account))
	if err := saveSession(account, "wallet"); err != nil {
		a.log.Warn("session not saved", zap.Error(err))
	}
	return account, nil
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the marketplace and token contracts.
func main() {
	verbose := flag.Bool("v", false, "verbose diagnostics")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	defer func() { _ = log.Sync() }()

	if cmd == "version" {
		fmt.Printf("market %s (%s)\n", version, buildDate)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		fail(err)
	}

	switch cmd {

	case "connect":
		account, err := a.connect(ctx)
		if errors.Is(err, errs.ErrSelectionCancelled) {
			fmt.Println("cancelled")
			return
		}
		if err != nil {
			fail(err)
		}
		balance, err := a.sess.Balance(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]string{"account": account, "balance": balance.String()})

	case "status":
		a.sess.CheckConnection(ctx)
		account, ok := a.sess.Account()
		if !ok {
			// no live provider session; fall back to the saved one for display
			if sf, found := loadSession(); found {
				printJSON(map[string]any{"connected": false, "saved_account": sf.Account})
				return
			}
			printJSON(map[string]any{"connected": false})
			return
		}
		balance, err := a.sess.Balance(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]any{"connected": true, "account": account, "balance": balance.String()})

	case "disconnect":
		a.sess.CheckConnection(ctx)
		if _, ok := a.sess.Account(); ok {
			if err := a.sess.Disconnect(); err != nil {
				fail(err)
			}
		}
		clearSession()
		fmt.Println("ok")

	case "items":
		items, err := a.market.ListAllItems(ctx, a.bindMarket())
		if err != nil {
			fail(err)
		}
		views := make([]itemView, 0, len(items))
		for _, it := range items {
			views = append(views, viewItem(it, cfg.TokenDecimals))
		}
		printJSON(views)

	case "item":
		fs := flag.NewFlagSet("item", flag.ExitOnError)
		id := fs.String("id", "", "item id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}
		it, err := a.market.GetItem(ctx, *id, a.bindMarket())
		if err != nil {
			fail(err)
		}
		printJSON(viewItem(it, cfg.TokenDecimals))

	case "mine":
		sf, found := loadSession()
		if !found {
			fail(errors.New("no saved session (run connect)"))
		}
		mkt := a.bindMarket()
		ids, err := a.market.GetUserItemIDs(ctx, sf.Account, mkt)
		if err != nil {
			fail(err)
		}
		views := make([]itemView, 0, len(ids))
		for _, id := range ids {
			it, err := a.market.GetItem(ctx, id, mkt)
			if err != nil {
				fail(err)
			}
			views = append(views, viewItem(it, cfg.TokenDecimals))
		}
		printJSON(views)

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		name := fs.String("name", "", "item name")
		desc := fs.String("desc", "", "description")
		image := fs.String("image", "", "image URI")
		location := fs.String("location", "", "location")
		price := fs.String("price", "", "price (decimal)")
		_ = fs.Parse(flag.Args()[1:])
		if *name == "" || *price == "" {
			fail(errors.New("need -name and -price"))
		}
		account, err := a.connect(ctx)
		if err != nil {
			fail(err)
		}
		draft := model.ListingDraft{
			Name:        *name,
			Description: *desc,
			Image:       *image,
			Location:    *location,
			Price:       *price,
		}
		id, err := a.market.CreateListing(ctx, draft, a.bindMarket(), account)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]string{"id": id})

	case "approve":
		fs := flag.NewFlagSet("approve", flag.ExitOnError)
		amount := fs.String("amount", "", "allowance (decimal)")
		_ = fs.Parse(flag.Args()[1:])
		if *amount == "" {
			fail(errors.New("need -amount"))
		}
		base, err := market.ToBaseUnits(*amount, cfg.TokenDecimals)
		if err != nil {
			fail(err)
		}
		account, err := a.connect(ctx)
		if err != nil {
			fail(err)
		}
		rcpt, err := a.market.ApproveSpend(ctx, base, a.bindToken(), cfg.MarketAddress, account)
		if err != nil {
			fail(err)
		}
		printJSON(rcpt)

	case "buy":
		fs := flag.NewFlagSet("buy", flag.ExitOnError)
		id := fs.String("id", "", "item id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}
		account, err := a.connect(ctx)
		if err != nil {
			fail(err)
		}
		mkt := a.bindMarket()
		it, err := a.market.GetItem(ctx, *id, mkt)
		if err != nil {
			fail(err)
		}
		// allowance gating is this layer's job, not BuyItem's
		allowance, err := a.bindToken().Allowance(ctx, account, cfg.MarketAddress)
		if err != nil {
			fail(err)
		}
		if allowance.Cmp(it.Price) < 0 {
			fail(fmt.Errorf("allowance %s below price %s: run approve first",
				market.FromBaseUnits(allowance, cfg.TokenDecimals),
				market.FromBaseUnits(it.Price, cfg.TokenDecimals)))
		}
		rcpt, err := a.market.BuyItem(ctx, *id, mkt, account)
		if err != nil {
			fail(err)
		}
		printJSON(rcpt)

	case "relist":
		fs := flag.NewFlagSet("relist", flag.ExitOnError)
		id := fs.String("id", "", "item id")
		price := fs.String("price", "", "new price (decimal)")
		location := fs.String("location", "", "new location")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" || *price == "" {
			fail(errors.New("need -id and -price"))
		}
		account, err := a.connect(ctx)
		if err != nil {
			fail(err)
		}
		rcpt, err := a.market.RelistItem(ctx, *id, *price, *location, a.bindMarket(), account)
		if err != nil {
			fail(err)
		}
		printJSON(rcpt)

	case "unlist":
		fs := flag.NewFlagSet("unlist", flag.ExitOnError)
		id := fs.String("id", "", "item id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}
		account, err := a.connect(ctx)
		if err != nil {
			fail(err)
		}
		rcpt, err := a.market.UnlistItem(ctx, *id, a.bindMarket(), account)
		if err != nil {
			fail(err)
		}
		printJSON(rcpt)

	default:
		usage()
	}
}
