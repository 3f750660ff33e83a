// Command shoptl translates selected products of a Shopify translation export.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/shoptl"
	"github.com/ZaguanLabs/shoptl/cache"
	"github.com/ZaguanLabs/shoptl/processor"
	"github.com/ZaguanLabs/shoptl/provider"
	"github.com/ZaguanLabs/shoptl/table"
)

// previewRows is how many matched rows search prints.
const previewRows = 10

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runContext(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return runContext(context.Background(), args, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           shoptl.Name,
		Short:         shoptl.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./.shoptl.yaml or ~/.shoptl.yaml)")

	root.AddCommand(
		newSearchCmd(&cfgFile),
		newTranslateCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", shoptl.Name, shoptl.FullVersion())
			if built := shoptl.BuildTime(); built != "" {
				fmt.Fprintf(out, "  built:   %s\n", built)
			}
		},
	}
}

func addHandleFlags(cmd *cobra.Command) {
	cmd.Flags().String("handles", "", "Comma or newline separated product handles")
	cmd.Flags().String("handles-file", "", "File with one handle per line")
	cmd.Flags().Bool("json", false, "Output result as JSON")
}

func newSearchCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <export.csv>",
		Short: "Show the products and rows matched by the given handles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return runSearch(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], cfg)
		},
	}
	addHandleFlags(cmd)
	return cmd
}

func newTranslateCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <export.csv>",
		Short: "Translate the matched products and write the completed export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], cfg)
		},
	}
	addHandleFlags(cmd)

	f := cmd.Flags()
	f.String("provider", "deepl", "Translation provider: deepl, openai or mock")
	f.String("api-key", "", "Provider API key (default: DEEPL_API_KEY or OPENAI_API_KEY env)")
	f.String("model", "gpt-4o-mini", "OpenAI model to use")
	f.String("source", "", "Source language code (default: detected by the provider)")
	f.StringP("output", "o", table.DefaultOutputName, "Output file (- for stdout)")
	f.Int("concurrency", 1, "Rows translated at once")
	f.Int("rpm", 0, "Maximum provider requests per minute (0 = unlimited)")
	f.String("domain", shoptl.DefaultLinkDomain, "Storefront domain whose links are localized")
	f.StringSlice("fields", nil, "Translatable fields (default: body_html,meta_description)")
	f.Int("cache-ttl", 3600, "Cache TTL in seconds (0 = no expiration, negative disables the cache)")
	f.String("redis-url", "", "Share the translation cache through Redis")
	f.String("cache-file", "", "Load the cache from and save it to this JSON file")
	f.String("bullet-join", "", "Text inserted between a line break and a restored bullet hyphen")
	f.Bool("verify-masks", false, "Fail rows whose protected spans were altered by the provider")
	f.Bool("private-tokens", false, "Use private-use characters as protection tokens")
	f.Bool("quiet", false, "Suppress progress output")
	return cmd
}

func commandConfig(cmd *cobra.Command, cfgFile string) (*config, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return loadConfig(v, cmd.Flags())
}

// loadSelection reads the export and selects the requested products.
func loadSelection(path string, cfg *config) (*table.Table, *shoptl.Selection, error) {
	handles, err := cfg.handleSet()
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	tbl, err := table.Read(f)
	if err != nil {
		return nil, nil, err
	}

	sel, err := shoptl.Select(tbl.Rows, handles)
	if err != nil {
		return tbl, nil, err
	}
	return tbl, sel, nil
}

// SearchOutput is the JSON output of the search command.
type SearchOutput struct {
	Products []string `json:"products"`
	Rows     int      `json:"rows"`
	Missing  []string `json:"missing,omitempty"`
}

func runSearch(stdout, stderr io.Writer, path string, cfg *config) error {
	_, sel, err := loadSelection(path, cfg)

	var noMatch *shoptl.NoMatchError
	if errors.As(err, &noMatch) {
		if cfg.JSON {
			return encodeJSON(stdout, SearchOutput{Products: []string{}, Missing: noMatch.Handles})
		}
		fmt.Fprintf(stderr, "warning: %v\n", noMatch)
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.JSON {
		return encodeJSON(stdout, SearchOutput{
			Products: sel.IDs,
			Rows:     len(sel.Rows),
			Missing:  sel.MissingHandles(),
		})
	}

	fmt.Fprintf(stdout, "Found %d products (%d rows)\n", len(sel.IDs), len(sel.Rows))
	for _, h := range sel.MissingHandles() {
		fmt.Fprintf(stdout, "  not found: %s\n", h)
	}
	fmt.Fprintln(stdout)

	for i, row := range sel.Rows {
		if i == previewRows {
			fmt.Fprintf(stdout, "... %d more rows\n", len(sel.Rows)-previewRows)
			break
		}
		text := row.Default
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		fmt.Fprintf(stdout, "%3d. %s  %-18s %-5s %q\n", i+1, row.ID, row.Field, row.Locale, text)
	}
	return nil
}

// JSONOutput is the machine-readable summary of a translate run.
type JSONOutput struct {
	Output          string   `json:"output"`
	Products        int      `json:"products"`
	Rows            int      `json:"rows"`
	TranslatedCount int      `json:"translated_count"`
	CachedCount     int      `json:"cached_count"`
	SkippedCount    int      `json:"skipped_count"`
	FailedCount     int      `json:"failed_count"`
	Missing         []string `json:"missing,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	ElapsedMs       int64    `json:"elapsed_ms"`
}

func runTranslate(ctx context.Context, stdout, stderr io.Writer, path string, cfg *config) error {
	tbl, sel, err := loadSelection(path, cfg)

	var noMatch *shoptl.NoMatchError
	if errors.As(err, &noMatch) {
		fmt.Fprintf(stderr, "warning: %v\n", noMatch)
		return nil
	}
	if err != nil {
		return err
	}

	p, err := newProvider(cfg, stderr)
	if err != nil {
		return err
	}

	tc, closeCache, err := newCache(cfg, stderr)
	if err != nil {
		return err
	}
	defer closeCache()

	opts := []shoptl.TranslatorOption{
		shoptl.WithSourceLang(cfg.SourceLang),
		shoptl.WithProcessor(newProcessor(cfg)),
		shoptl.WithLinkDomain(cfg.Domain),
		shoptl.WithConcurrency(cfg.Concurrency),
		shoptl.WithMaskVerification(cfg.VerifyMasks),
		shoptl.WithCacheNamespace(cfg.cacheNamespace()),
	}
	if tc != nil {
		opts = append(opts, shoptl.WithCache(tc))
	}
	if cfg.Locales != nil {
		opts = append(opts, shoptl.WithLocales(cfg.Locales))
	}
	if fields := cfg.fieldKinds(); fields != nil {
		opts = append(opts, shoptl.WithFields(fields))
	}
	if !cfg.Quiet {
		opts = append(opts, shoptl.WithReporter(&progressReporter{w: stderr}))
	}

	translator := shoptl.NewTranslator(p, opts...)

	if !cfg.Quiet {
		fmt.Fprintf(stderr, "Translating %d products (%d rows) with %s...\n", len(sel.IDs), len(sel.Rows), cfg.Provider)
	}

	start := time.Now()
	result, runErr := translator.Process(ctx, sel.Rows)
	elapsed := time.Since(start)
	if result == nil {
		return fmt.Errorf("translation failed: %w", runErr)
	}

	if err := writeOutput(tbl, result.Rows, cfg.Output, stdout); err != nil {
		return err
	}
	if err := saveCache(tc, cfg); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("translation interrupted, partial output written: %w", runErr)
	}

	if cfg.JSON {
		out := JSONOutput{
			Output:          cfg.Output,
			Products:        len(sel.IDs),
			Rows:            len(result.Rows),
			TranslatedCount: result.Translated,
			CachedCount:     result.Cached,
			SkippedCount:    result.Skipped,
			FailedCount:     result.Failed(),
			Missing:         sel.MissingHandles(),
			ElapsedMs:       elapsed.Milliseconds(),
		}
		for _, w := range result.Warnings {
			out.Warnings = append(out.Warnings, w.Error())
		}
		// Keep stdout clean for the summary when the CSV goes there too.
		if cfg.Output == "-" {
			return encodeJSON(stderr, out)
		}
		return encodeJSON(stdout, out)
	}

	if !cfg.Quiet {
		for _, h := range sel.MissingHandles() {
			fmt.Fprintf(stderr, "warning: no product found for handle %s\n", h)
		}
		fmt.Fprintf(stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Translated:   %d\n", result.Translated)
		fmt.Fprintf(stderr, "  From cache:   %d\n", result.Cached)
		fmt.Fprintf(stderr, "  Skipped:      %d\n", result.Skipped)
		fmt.Fprintf(stderr, "  Failed:       %d\n", result.Failed())
		if cfg.Output != "-" {
			fmt.Fprintf(stderr, "  Written to:   %s\n", cfg.Output)
		}
	}

	return nil
}

func newProvider(cfg *config, stderr io.Writer) (shoptl.Provider, error) {
	var p shoptl.Provider
	switch cfg.Provider {
	case "deepl":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("DeepL API key required (--api-key or DEEPL_API_KEY env)")
		}
		p = provider.NewDeepLProvider(provider.DeepLConfig{APIKey: cfg.APIKey})
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required (--api-key or OPENAI_API_KEY env)")
		}
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	case "mock":
		return provider.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want deepl, openai or mock)", cfg.Provider)
	}

	retry := shoptl.DefaultRetryConfig()
	if !cfg.Quiet {
		retry.OnRetry = func(attempt int, err error, delay time.Duration) {
			fmt.Fprintf(stderr, "warning: %v (retry %d/%d in %v)\n", err, attempt, retry.MaxRetries, delay)
		}
	}
	limit := shoptl.RateLimitConfig{RequestsPerMinute: cfg.RPM}
	if cfg.RPM <= 0 {
		limit.RequestsPerMinute = shoptl.Unpaced
	}
	return shoptl.NewPacedRetryProvider(p, retry, limit), nil
}

func newProcessor(cfg *config) *processor.LayoutProcessor {
	opts := []processor.LayoutOption{processor.WithBulletJoin(cfg.BulletJoin)}
	if cfg.PrivateTokens {
		opts = append(opts, processor.WithTokens(processor.PrivateUseTokens()))
	}
	return processor.NewLayoutProcessor(opts...)
}

// newCache builds the cache stack: memory, optionally behind Redis, optionally
// preloaded from a cache file. A nil cache means caching is disabled.
func newCache(cfg *config, stderr io.Writer) (cache.TranslationCache, func(), error) {
	noop := func() {}
	if cfg.CacheTTL < 0 {
		return nil, noop, nil
	}

	mem := cache.NewInMemoryCache(cfg.CacheTTL)
	var tc cache.TranslationCache = mem
	closeFn := noop

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{URL: cfg.RedisURL, TTL: cfg.CacheTTL})
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		tc = cache.NewTieredCache(mem, rc)
		closeFn = func() { rc.Close() }
	}

	if cfg.CacheFile != "" {
		n, err := cache.LoadFile(cfg.CacheFile, tc)
		if err != nil {
			closeFn()
			return nil, noop, fmt.Errorf("loading cache file: %w", err)
		}
		if n > 0 && !cfg.Quiet {
			fmt.Fprintf(stderr, "Loaded %d cached translations from %s\n", n, cfg.CacheFile)
		}
	}

	return tc, closeFn, nil
}

func saveCache(tc cache.TranslationCache, cfg *config) error {
	if tc == nil || cfg.CacheFile == "" {
		return nil
	}
	meta := map[string]string{"tool": shoptl.Name, "version": shoptl.FullVersion()}
	if err := cache.SaveFile(cfg.CacheFile, tc, meta); err != nil {
		return fmt.Errorf("saving cache file: %w", err)
	}
	return nil
}

func writeOutput(tbl *table.Table, rows []shoptl.Row, path string, stdout io.Writer) error {
	if path == "-" || path == "" {
		return tbl.Write(stdout, rows)
	}

	f, err := os.Create(path) // #nosec G304 - CLI tool writes user-specified files
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := tbl.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressReporter prints one line per row and every per-row warning.
type progressReporter struct {
	w io.Writer
}

func (r *progressReporter) RowStarted(done, total int, row shoptl.Row, target shoptl.LocaleTarget) {
	fmt.Fprintf(r.w, "[%d/%d] Translating: ID %s (%s)...\n", done, total, row.ID, target.Lang)
}

func (r *progressReporter) RowFailed(err *shoptl.RowError) {
	fmt.Fprintf(r.w, "warning: %v\n", err)
}
