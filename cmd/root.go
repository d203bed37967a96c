package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/shelfscan/internal/cache"
	"github.com/lepinkainen/shelfscan/internal/config"
	"github.com/lepinkainen/shelfscan/internal/covers"
	"github.com/lepinkainen/shelfscan/internal/datastore"
	"github.com/lepinkainen/shelfscan/internal/library"
	"github.com/lepinkainen/shelfscan/internal/metadata"
	"github.com/lepinkainen/shelfscan/internal/scanner"
	"github.com/lepinkainen/shelfscan/internal/tui"
)

var (
	runScanView = tui.RunScanView
	newResolver = func() scanResolver { return metadata.NewResolver() }
	buildStore  = defaultBuildStore
)

type scanResolver interface {
	Resolve(ctx context.Context, isbn string) (library.Draft, error)
}

// CLI represents the complete command structure for the shelfscan application
type CLI struct {
	// Global flags
	Policy   string        `help:"ISBN validation policy" enum:"strict,loose" default:"strict"`
	Cooldown time.Duration `help:"Cool-down before the same barcode scans again" default:"3s"`

	// Store flags
	StoreDriver string `help:"Storage backend (sqlite, postgres or rest)" default:"sqlite"`
	StoreDBFile string `help:"Path to SQLite database file" default:"./shelfscan.db"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Scan   ScanCmd   `cmd:"" help:"Scan barcodes and add books to the library"`
	Add    AddCmd    `cmd:"" help:"Add a book manually by title"`
	List   ListCmd   `cmd:"" help:"List books in the library"`
	Set    SetCmd    `cmd:"" help:"Update a book's status or category"`
	Remove RemoveCmd `cmd:"" help:"Remove a book from the library"`
	Export ExportCmd `cmd:"" help:"Export the library to JSON or YAML"`
	Cache  CacheCmd  `cmd:"" help:"Manage the metadata cache"`
}

// ScanCmd represents the scan command
type ScanCmd struct {
	Input    string `short:"f" help:"Read scan events from a file instead of the interactive view"`
	Category string `short:"c" help:"Category applied to every scanned book"`
	Covers   bool   `help:"Download and resize cover images" default:"false"`
}

// AddCmd represents the manual add command
type AddCmd struct {
	Title    string `arg:"" help:"Title of the book to add"`
	Category string `short:"c" help:"Category for the new book"`
}

// ListCmd represents the list command
type ListCmd struct {
	Status   string `short:"s" help:"Filter by status (unread, reading or finished)"`
	Category string `short:"c" help:"Filter by category"`
	Order    string `short:"o" help:"Sort order, e.g. 'title asc' or 'created_at desc'"`
	Format   string `help:"Output format" enum:"table,json,yaml" default:"table"`
}

// SetCmd groups the mutation subcommands
type SetCmd struct {
	Status   SetStatusCmd   `cmd:"" help:"Set a book's reading status"`
	Category SetCategoryCmd `cmd:"" help:"Set or clear a book's category"`
}

// SetStatusCmd updates a book's reading status
type SetStatusCmd struct {
	ID     int64  `arg:"" help:"Book ID"`
	Status string `arg:"" help:"New status (unread, reading or finished)"`
}

// SetCategoryCmd updates or clears a book's category
type SetCategoryCmd struct {
	ID       int64  `arg:"" help:"Book ID"`
	Category string `arg:"" optional:"" help:"New category, omit to clear"`
}

// RemoveCmd deletes a book
type RemoveCmd struct {
	ID int64 `arg:"" help:"Book ID"`
}

// ExportCmd represents the export command
type ExportCmd struct {
	Format string `help:"Export format" enum:"json,yaml" default:"json"`
	Output string `short:"o" help:"Output file, defaults to stdout"`
}

// CacheCmd represents the cache command
type CacheCmd struct {
	Clear CacheClearCmd `cmd:"" help:"Clear cached provider responses"`
}

// CacheClearCmd clears one or all cache tables
type CacheClearCmd struct {
	Table string `arg:"" optional:"" help:"Cache table to clear, omit for all"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("shelfscan"),
		kong.Description("A barcode-driven book tracker: scan ISBNs, look up metadata and keep your library in one place."),
		kong.UsageOnError(),
	)

	initConfig()
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Enable environment variable support
	viper.AutomaticEnv()
	if err := viper.BindEnv("GoogleBooksAPIKey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file...")
			config.InitConfig()
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
			return
		}
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetScanPolicy(cli.Policy)
	config.SetCooldown(cli.Cooldown)

	viper.Set("store.driver", cli.StoreDriver)
	viper.Set("store.dbfile", cli.StoreDBFile)

	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

func initLogging() {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// defaultBuildStore connects the configured storage backend and makes
// sure the books table exists on backends that own their schema.
func defaultBuildStore(ctx context.Context) (datastore.Store, string, error) {
	driver := viper.GetString("store.driver")
	table := viper.GetString("store.table")
	if table == "" {
		table = "books"
	}

	switch driver {
	case "sqlite", "":
		store := datastore.NewSQLiteStore(viper.GetString("store.dbfile"))
		if err := store.Connect(ctx); err != nil {
			return nil, "", err
		}
		if err := store.CreateTable(ctx, datastore.BooksSchemaSQLite); err != nil {
			return nil, "", err
		}
		return store, table, nil

	case "postgres":
		store := datastore.NewPostgresStore(viper.GetString("store.dsn"))
		if err := store.Connect(ctx); err != nil {
			return nil, "", err
		}
		if err := store.CreateTable(ctx, datastore.BooksSchemaPostgres); err != nil {
			return nil, "", err
		}
		return store, table, nil

	case "rest":
		store := datastore.NewRESTTableClient(viper.GetString("store.baseurl"), viper.GetString("store.apikey"))
		if err := store.Connect(ctx); err != nil {
			return nil, "", err
		}
		return store, table, nil

	default:
		return nil, "", fmt.Errorf("unknown store driver %q", driver)
	}
}

func openLibrary(ctx context.Context) (*library.Service, datastore.Store, error) {
	store, table, err := buildStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return library.NewService(store, table), store, nil
}

// Run methods for each command

func (s *ScanCmd) Run() error {
	ctx := context.Background()

	policy, err := scanner.ParsePolicy(config.ScanPolicy)
	if err != nil {
		return err
	}

	category := s.Category
	if category == "" {
		category = config.ScanCategory
	}

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := []scanner.Option{
		scanner.WithMetrics(scanner.NewMetrics()),
	}
	if category != "" {
		opts = append(opts, scanner.WithCategory(category))
	}
	if s.Covers || viper.GetBool("covers.enabled") {
		opts = append(opts, scanner.WithCovers(covers.NewFetcher()))
	}

	gate := scanner.NewGate(policy, scanner.TerminalBeeper{})
	resolver := newResolver()

	if s.Input != "" {
		pipeline := scanner.NewPipeline(gate, resolver, books, scanner.LogNotifier{}, config.Cooldown, opts...)
		return runScanFile(ctx, pipeline, s.Input)
	}

	notifier := tui.NewScanNotifier()
	pipeline := scanner.NewPipeline(gate, resolver, books, notifier, config.Cooldown, opts...)
	return runScanView(ctx, pipeline, notifier)
}

func runScanFile(ctx context.Context, pipeline *scanner.Pipeline, path string) error {
	var source io.Reader
	if path == "-" {
		source = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open scan source: %w", err)
		}
		defer func() { _ = f.Close() }()
		source = f
	}

	pipeline.Run(ctx, scanner.NewDecoder(source).Events(ctx))
	return nil
}

func (a *AddCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	book, err := books.Add(ctx, library.ManualTitle(a.Title), a.Category)
	if err != nil {
		return err
	}

	slog.Info("Book added", "id", book.ID, "title", book.Title)
	return nil
}

func (l *ListCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := books.List(ctx, library.ListOptions{
		Status:   library.Status(l.Status),
		Category: l.Category,
		Order:    l.Order,
	})
	if err != nil {
		return err
	}

	switch l.Format {
	case library.FormatJSON, library.FormatYAML:
		return library.Export(os.Stdout, results, l.Format)
	default:
		printBookTable(os.Stdout, results)
		return nil
	}
}

func printBookTable(w io.Writer, books []library.Book) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tCATEGORY\tISBN")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Title, b.Author, b.Status, b.Category, b.ISBN)
	}
	_ = tw.Flush()
}

func (s *SetStatusCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return books.UpdateStatus(ctx, s.ID, library.Status(strings.ToLower(s.Status)))
}

func (s *SetCategoryCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return books.SetCategory(ctx, s.ID, s.Category)
}

func (r *RemoveCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return books.Remove(ctx, r.ID)
}

func (e *ExportCmd) Run() error {
	ctx := context.Background()

	books, store, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := books.List(ctx, library.ListOptions{})
	if err != nil {
		return err
	}

	out := os.Stdout
	if e.Output != "" {
		f, err := os.Create(e.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return library.Export(out, results, e.Format)
}

func (c *CacheClearCmd) Run() error {
	tables := cache.TableNames()
	if c.Table != "" {
		tables = []string{c.Table}
	}

	db, err := cache.Global()
	if err != nil {
		return err
	}

	for _, table := range tables {
		removed, err := db.ClearAll(table)
		if err != nil {
			return err
		}
		slog.Info("Cache cleared", "table", table, "entries", removed)
	}
	return nil
}
