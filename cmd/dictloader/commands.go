package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/dictloader"
	"github.com/thalesfsp/dictloader/internal/config"
	"github.com/thalesfsp/dictloader/internal/logging"
	"github.com/thalesfsp/dictloader/internal/shared"
)

// CLI flags
var (
	configPath string
	dataDir    string
	dataFile   string

	indexName       string
	docType         string
	maxBatchSize    int
	concurrency     int
	esAddresses     []string
	refreshAfterRun bool

	logLevel     string
	logFormat    string
	showProgress bool
	skipInitial  bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   shared.Name,
		Short: "Load dictionary variants into Elasticsearch",
		Long: `dictloader bulk-loads dictionary data from csv files into Elasticsearch.

Every <entity>.csv file holds a header row, then one canonical value per row in
the first column and its "|"-separated variants in the second one.

Examples:
  dictloader create --dir data/variants --index entity_data
  dictloader update --file data/variants/city.csv
  dictloader watch --dir data/variants --config dictloader.yaml`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Directory of entity csv files")
	rootCmd.PersistentFlags().StringVarP(&dataFile, "file", "f", "", "Single entity csv file")
	rootCmd.PersistentFlags().StringVarP(&indexName, "index", "i", "", "Target index name")
	rootCmd.PersistentFlags().StringVar(&docType, "doc-type", "", "Document type tag")
	rootCmd.PersistentFlags().IntVar(&maxBatchSize, "max-batch-size", 0, "Flush once a batch holds more documents than this")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Files loaded at the same time")
	rootCmd.PersistentFlags().StringSliceVar(&esAddresses, "es-address", nil, "Elasticsearch address, repeatable")
	rootCmd.PersistentFlags().BoolVar(&refreshAfterRun, "refresh", false, "Refresh the index after a run")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "Show a progress bar")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Index every dictionary entry, replacing existing documents",
		RunE:  runLoad(false),
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update (upsert) every dictionary entry",
		RunE:  runLoad(true),
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Load a directory, then update entities whenever their csv changes",
		RunE:  runWatch,
	}

	watchCmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Don't load the directory before watching")

	rootCmd.AddCommand(createCmd, updateCmd, watchCmd)

	return rootCmd
}

// loadConfig returns the config file and env settings, overridden by the
// flags which were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("index") {
		cfg.Index.Name = indexName
	}

	if flags.Changed("doc-type") {
		cfg.Index.DocType = docType
	}

	if flags.Changed("max-batch-size") {
		cfg.Index.MaxBatchSize = maxBatchSize
	}

	if flags.Changed("concurrency") {
		cfg.Index.Concurrency = concurrency
	}

	if flags.Changed("es-address") {
		cfg.Elasticsearch.Addresses = esAddresses
	}

	if flags.Changed("refresh") {
		cfg.Index.RefreshAfterRun = refreshAfterRun
	}

	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLoader wires config, logger, client and loader together.
func newLoader(cmd *cobra.Command, update bool) (*dictloader.Loader, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.DefaultConfig()

	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}

	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}

	logger := logging.New(logCfg)

	client, err := dictloader.NewElasticsearchClient(cmd.Context(), cfg.ElasticsearchClientConfig())
	if err != nil {
		return nil, nil, err
	}

	opts, err := dictloader.NewBulkOptions(cfg.Index.Name, cfg.Index.DocType, update)
	if err != nil {
		return nil, nil, err
	}

	opts.MaxBatchSize = cfg.Index.MaxBatchSize
	opts.Concurrency = max(cfg.Index.Concurrency, 1)
	opts.Pipeline = cfg.Index.Pipeline
	opts.Routing = cfg.Index.Routing
	opts.RefreshPolicy = cfg.Index.RefreshPolicy
	opts.RefreshAfterRun = cfg.Index.RefreshAfterRun
	opts.Timeout = cfg.Index.Timeout
	opts.WatchDebounce = cfg.Index.WatchDebounce

	loader, err := dictloader.NewLoader(client, opts, logger)
	if err != nil {
		return nil, nil, err
	}

	return loader, logger, nil
}

// requireSource checks that exactly one of --dir and --file is set.
func requireSource(allowFile bool) error {
	switch {
	case dataDir != "" && dataFile != "":
		return errors.New("--dir and --file are mutually exclusive")
	case dataDir == "" && dataFile == "":
		if allowFile {
			return errors.New("one of --dir or --file is required")
		}

		return errors.New("--dir is required")
	case dataFile != "" && !allowFile:
		return errors.New("--file is not supported here, use --dir")
	}

	return nil
}

func runLoad(update bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := requireSource(true); err != nil {
			return err
		}

		loader, logger, err := newLoader(cmd, update)
		if err != nil {
			return err
		}

		start := time.Now()

		if dataFile != "" {
			_, err := loader.LoadFile(cmd.Context(), dataFile)
			if err == nil {
				err = loader.Refresh(cmd.Context())
			}

			logSummary(logger, loader.Metrics(), time.Since(start))

			return err
		}

		err = loadDirectory(cmd, loader)

		logSummary(logger, loader.Metrics(), time.Since(start))

		return err
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := requireSource(false); err != nil {
		return err
	}

	loader, logger, err := newLoader(cmd, true)
	if err != nil {
		return err
	}

	if !skipInitial {
		if err := loadDirectory(cmd, loader); err != nil {
			// Files which failed are retried on their next change.
			logger.Error("initial load incomplete", slog.Any("error", err))
		}
	}

	start := time.Now()

	err = loader.Watch(cmd.Context(), dataDir, nil)

	logSummary(logger, loader.Metrics(), time.Since(start))

	if errors.Is(err, cmd.Context().Err()) {
		return nil
	}

	return err
}

// loadDirectory runs a directory load, with a progress bar if asked for.
func loadDirectory(cmd *cobra.Command, loader *dictloader.Loader) error {
	if !showProgress {
		return loader.LoadDirectory(cmd.Context(), dataDir, nil)
	}

	files, err := dictloader.ListSourceFiles(dataDir)
	if err != nil {
		return err
	}

	bar := showProgressBar(len(files), "loading dictionaries")

	resultCh := make(chan *dictloader.FileResult)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for result := range resultCh {
			bar.Describe(result.Entity)

			_ = bar.Add(1)
		}
	}()

	err = loader.LoadDirectory(cmd.Context(), dataDir, resultCh)

	close(resultCh)

	<-done

	_ = bar.Finish()

	return err
}

// showProgressBar returns a file-count progress bar on stderr.
func showProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func logSummary(logger *slog.Logger, m *dictloader.Metrics, took time.Duration) {
	logger.Info("run finished",
		slog.String("status", m.Status),
		slog.Int64("files", m.FilesProcessed),
		slog.Int64("filesEmpty", m.FilesEmpty),
		slog.Int64("filesFailed", m.FilesFailed),
		slog.Int64("rowsSkipped", m.RowsSkipped),
		slog.Int64("batches", m.BatchesFlushed),
		slog.Int64("docsSucceeded", m.DocsSucceeded),
		slog.Int64("docsFailed", m.DocsFailed),
		slog.Duration("took", took),
	)
}
