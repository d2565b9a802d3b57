// shopcli is a CLI for the storefront backend. It talks to the backend
// directly, through the same client, gateway and page state the server uses.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	shopcli login -token TOKEN [-user NAME]
//	shopcli logout
//	shopcli products [-backend URL]
//	shopcli search [-query] TEXT
//	shopcli cart -token TOKEN
//	shopcli add -token TOKEN -product ID
//	shopcli set -token TOKEN -product ID -qty N
//	shopcli browse [-token TOKEN] [-debounce 500ms]
//
// Examples:
//
//	shopcli login -token "$TOKEN" -user alice
//	shopcli search lamp
//	shopcli add -token "$TOKEN" -product BW0jAAeDJmlZCF8i
//	shopcli set -token "$TOKEN" -product BW0jAAeDJmlZCF8i -qty 0
//	printf 'l\nla\nlamp\n' | shopcli browse
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/backend"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/search"
	"storefront/internal/session"
	"storefront/internal/storefront"
)

// Global flags (apply to all commands)
var (
	backendURL  string
	token       string
	sessionHdr  string
	sessionFile string
	timeout     time.Duration
	fingerprint bool
	quiet       bool
	noColor     bool
	verbose     bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		runLogin(args)
	case "logout":
		runLogout(args)
	case "products":
		runProducts(args)
	case "search":
		runSearch(args)
	case "cart":
		runCart(args)
	case "add":
		runAdd(args)
	case "set":
		runSet(args)
	case "browse":
		runBrowse(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopcli - storefront catalog and cart tool

Usage:
  shopcli <command> [options]

Commands:
  login     Save a session token for later commands
  logout    Forget the saved session
  products  List the catalog
  search    Search the catalog
  cart      Show the cart with product details and totals
  add       Add one unit of a product not yet in the cart
  set       Set a cart line's quantity (0 or less removes it)
  browse    Interactive products page driven by stdin lines

Session (first match wins):
  -token TOKEN, -session 'token="...";user="..."' or $STOREFRONT_SESSION,
  then the session saved by 'shopcli login'

Examples:
  shopcli search lamp
  shopcli add -token "$TOKEN" -product BW0jAAeDJmlZCF8i
  printf 'l\nla\nlamp\n' | shopcli browse

Run 'shopcli <command> -h' for command-specific options.
`)
}

// newFlagSet registers the global flags on a command's flag set.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&backendURL, "backend", envOr("STOREFRONT_BACKEND", "http://localhost:8082/api/v1"), "Backend base URL including /api/vN")
	fs.StringVar(&token, "token", "", "Bearer token returned on login")
	fs.StringVar(&sessionHdr, "session", os.Getenv("STOREFRONT_SESSION"), "Session as a structured header: token=\"...\";user=\"...\"")
	fs.StringVar(&sessionFile, "session-file", defaultSessionFile(), "Where login saves the session")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Backend request timeout")
	fs.BoolVar(&fingerprint, "fingerprint", false, "Use a browser TLS fingerprint for https backends")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - machine-readable output only")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - log backend activity")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shopcli %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// setup applies global flags and builds the backend client.
func setup() (*backend.Client, *slog.Logger) {
	if noColor {
		disableColors()
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client, err := backend.New(backend.Config{
		BaseURL:        backendURL,
		Timeout:        timeout,
		FingerprintTLS: fingerprint,
	})
	if err != nil {
		fatal("Invalid backend: %v", err)
	}
	return client, logger
}

// currentSession resolves the session from -token, -session or the saved
// session file, in that order.
func currentSession() session.Session {
	if token != "" {
		return session.Session{Token: token}
	}
	if sessionHdr != "" {
		s, err := session.ParseHeader(sessionHdr)
		if err != nil {
			fatal("Invalid -session: %v", err)
		}
		return s
	}
	return session.Load(openStore())
}

func openStore() *session.FileStore {
	store, err := session.OpenFileStore(sessionFile)
	if err != nil {
		fatal("%v", err)
	}
	return store
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shopcli-session.json"
	}
	return filepath.Join(dir, "shopcli", "session.json")
}

// =============================================================================
// SESSION
// =============================================================================

func runLogin(args []string) {
	fs := newFlagSet("login", "login -token TOKEN [-user NAME] [options]")
	var user, balance string
	fs.StringVar(&user, "user", "", "Username to display")
	fs.StringVar(&balance, "balance", "", "Wallet balance returned at login")
	fs.Parse(args)
	setup()

	sess := session.Session{Token: token, Username: user, Balance: balance}
	if token == "" && sessionHdr != "" {
		sess = currentSession()
	}
	if !sess.Authenticated() {
		fs.Usage()
		os.Exit(1)
	}

	store := openStore()
	session.Save(store, sess)
	if err := store.Flush(); err != nil {
		fatal("Saving session: %v", err)
	}

	header, err := session.FormatHeader(sess)
	if err != nil {
		fatal("Formatting session header: %v", err)
	}
	if quiet {
		fmt.Println(header)
		return
	}
	printSuccess("Logged in as %s", withDefault(sess.Username, "(unnamed)"))
	printInfo("Session saved to %s", sessionFile)
	printInfo("Storefront-Session: %s", header)
}

func runLogout(args []string) {
	fs := newFlagSet("logout", "logout [options]")
	fs.Parse(args)
	setup()

	store := openStore()
	session.Clear(store)
	if err := store.Flush(); err != nil {
		fatal("Clearing session: %v", err)
	}
	printSuccess("Logged out")
}

// =============================================================================
// CATALOG
// =============================================================================

func runProducts(args []string) {
	fs := newFlagSet("products", "products [options]")
	fs.Parse(args)
	client, _ := setup()

	products, err := client.ListProducts(context.Background())
	if err != nil {
		fatal("%s", model.UserMessage(err, model.GenericBackendMessage))
	}
	printProducts(products)
}

func runSearch(args []string) {
	fs := newFlagSet("search", "search [-query] TEXT [options]")
	var text string
	fs.StringVar(&text, "query", "", "Search text (alias of positional args)")
	fs.Parse(args)
	if text == "" {
		text = strings.Join(fs.Args(), " ")
	}
	client, _ := setup()

	ctx := context.Background()
	var products []model.Product
	var err error
	if strings.TrimSpace(text) == "" {
		products, err = client.ListProducts(ctx)
	} else {
		products, err = client.SearchProducts(ctx, text)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			printWarning(storefront.MsgNoProducts)
			return
		}
		fatal("%s", model.UserMessage(err, model.GenericBackendMessage))
	}
	printProducts(products)
}

// =============================================================================
// CART
// =============================================================================

func runCart(args []string) {
	fs := newFlagSet("cart", "cart -token TOKEN [options]")
	fs.Parse(args)
	client, logger := setup()
	sess := currentSession()

	ctx := context.Background()
	idx := loadCatalog(ctx, client)
	items, err := cart.NewGateway(client, logger).Load(ctx, sess, idx)
	if err != nil {
		fatal("%s", model.UserMessage(err, model.GenericBackendMessage))
	}
	if !sess.Authenticated() {
		printWarning("Not logged in; the cart is empty")
	}
	printCart(items)
}

func runAdd(args []string) {
	fs := newFlagSet("add", "add -token TOKEN -product ID [options]")
	var productID string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.Parse(args)
	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}
	client, logger := setup()
	sess := currentSession()

	ctx := context.Background()
	idx := loadCatalog(ctx, client)
	var records []model.CartRecord
	if sess.Authenticated() {
		var err error
		records, err = client.FetchCart(ctx, sess.Token)
		if err != nil {
			fatal("%s", model.UserMessage(err, model.GenericBackendMessage))
		}
	}

	items, err := cart.NewGateway(client, logger).AddToCart(ctx, sess, records, idx, productID)
	if err != nil {
		fatal("%s", model.UserMessage(err, storefront.MsgAddFailed))
	}
	printSuccess("Added %s", productID)
	printCart(items)
}

func runSet(args []string) {
	fs := newFlagSet("set", "set -token TOKEN -product ID -qty N [options]")
	var productID string
	var qty int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.IntVar(&qty, "qty", 0, "New quantity, 0 or less removes the line (required)")
	fs.Parse(args)
	if productID == "" || !flagGiven(fs, "qty") {
		fs.Usage()
		os.Exit(1)
	}
	client, logger := setup()
	sess := currentSession()

	ctx := context.Background()
	idx := loadCatalog(ctx, client)
	items, err := cart.NewGateway(client, logger).SetQuantity(ctx, sess, nil, idx, productID, qty)
	if err != nil {
		if items != nil {
			printCart(items)
		}
		fatal("%s", model.UserMessage(err, storefront.MsgAddFailed))
	}
	printSuccess("Set %s to %d", productID, qty)
	printCart(items)
}

// flagGiven reports whether name was set on the command line, so that any
// value, zero and negatives included, can be told apart from "absent".
func flagGiven(fs *flag.FlagSet, name string) bool {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			given = true
		}
	})
	return given
}

func loadCatalog(ctx context.Context, client *backend.Client) *catalog.Index {
	products, err := client.ListProducts(ctx)
	if err != nil {
		fatal("%s", model.UserMessage(err, model.GenericBackendMessage))
	}
	return catalog.NewIndex(products)
}

// =============================================================================
// BROWSE
// =============================================================================

// runBrowse drives a products page from stdin. Each line is the new state
// of the search box, except for these commands:
//
//	+ID  add to cart     >ID  increment     <ID  decrement
//	?    show the cart   !    reload
func runBrowse(args []string) {
	fs := newFlagSet("browse", "browse [-token TOKEN] [options] < input")
	var debounce time.Duration
	fs.DurationVar(&debounce, "debounce", search.DefaultDelay, "Search debounce delay")
	fs.Parse(args)
	client, logger := setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	page := storefront.NewPage(client, currentSession(), storefront.Options{
		Debounce: debounce,
		Logger:   logger,
		Notify:   printNotification,
		OnSearch: func(text string, view []model.Product) {
			printInfo("Results for %q", text)
			printProducts(view)
		},
	})
	defer page.Close()

	page.Load(ctx)
	snap := page.Snapshot()
	printInfo("Catalog loaded: %d products, %d in cart", len(snap.Catalog), snap.TotalCount)

	lines := make(chan string)
	go func() {
		defer close(lines)
		readLines(os.Stdin, lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				// Let the last burst settle before exiting
				time.Sleep(page.Debounce() + 100*time.Millisecond)
				printCart(page.Snapshot().Items)
				return
			}
			browseLine(ctx, page, line)
		}
	}
}

func browseLine(ctx context.Context, page *storefront.Page, line string) {
	switch {
	case strings.HasPrefix(line, "+"):
		page.AddToCart(ctx, strings.TrimSpace(line[1:]))
		printCart(page.Snapshot().Items)
	case strings.HasPrefix(line, ">"):
		page.Increment(ctx, strings.TrimSpace(line[1:]))
		printCart(page.Snapshot().Items)
	case strings.HasPrefix(line, "<"):
		page.Decrement(ctx, strings.TrimSpace(line[1:]))
		printCart(page.Snapshot().Items)
	case line == "?":
		printCart(page.Snapshot().Items)
	case line == "!":
		page.Load(ctx)
		printInfo("Reloaded")
	default:
		page.Input(line)
	}
}

func readLines(r io.Reader, out chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printProducts(products []model.Product) {
	if quiet {
		printJSON(products)
		return
	}
	if len(products) == 0 {
		printWarning(storefront.MsgNoProducts)
		return
	}
	for _, p := range products {
		fmt.Printf("  %s%-18s%s %-28s %s%-12s%s %8.2f  %s\n",
			colorGray, p.ID, colorReset,
			truncate(p.Name, 28),
			colorCyan, p.Category, colorReset,
			p.UnitCost, stars(p.Rating))
	}
}

func printCart(items []model.LineItem) {
	if quiet {
		printJSON(items)
		return
	}
	if len(items) == 0 {
		printInfo("Cart is empty")
		return
	}
	fmt.Printf("\n%sCART%s\n", colorBold, colorReset)
	for _, it := range items {
		fmt.Printf("  %-28s x%-3d %10.2f\n", truncate(it.Name, 28), it.Quantity, it.Subtotal())
	}
	fmt.Printf("  %s%d products, total %.2f%s\n",
		colorGreen, reconcile.TotalCount(items), reconcile.TotalValue(items), colorReset)
}

func printNotification(n storefront.Notification) {
	switch n.Variant {
	case storefront.VariantError:
		printError("%s", n.Message)
	case storefront.VariantWarning:
		printWarning("%s", n.Message)
	default:
		printSuccess("%s", n.Message)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encoding output: %v", err)
	}
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
