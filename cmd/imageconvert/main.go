package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/codec"
	"imageconvert/internal/config"
	"imageconvert/internal/console"
	"imageconvert/internal/converter"
	"imageconvert/internal/logger"
	"imageconvert/internal/manifest"
	"imageconvert/internal/metadata"
	"imageconvert/internal/statistics"
	"imageconvert/internal/web"
)

var (
	cfgFile      string
	verbose      bool
	quiet        bool
	directory    string
	fromExt      string
	toExt        string
	compression  int
	exclude      []string
	noOverwrite  bool
	manifestPath string
	deleteClass  string
	fileClass    string
	port         int
)

// errReported marks an error the wizard has already shown on screen.
var errReported = errors.Base("error already reported")

// rootCmd runs the interactive wizard when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "imageconvert",
	Short: "Batch-convert images in a directory tree to another format",
	Long: `imageconvert converts every image with a given extension under a directory
into another format at a chosen quality, then optionally deletes the
originals or the converted copies.

Run without a subcommand to start the interactive wizard.

Supported formats: JPEG, PNG, GIF, TIFF, BMP, WebP, AVIF (read and write)
and PDF (write only).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard()
	},
}

// convertCmd converts non-interactively.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert images without prompting",
	Long: `Converts every file with the source extension under --dir into the target
format. Values not given as flags come from the config file or
IMAGECONVERT_* environment variables.

The first file that fails to convert stops the run. Use --manifest to record
the converted files so a later "delete" can remove either side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

// deleteCmd removes one side of a job recorded in a manifest.
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete source or converted files recorded in a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDelete()
	},
}

// scanCmd lists the files a conversion would process.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List files that would be converted, without converting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd)
	},
}

// formatsCmd prints the format table.
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Show supported extensions and formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return console.NewPrinter(os.Stdout).Formats(codec.NewRegistry().Capabilities())
	},
}

// inspectCmd shows what the converter sees in a single file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show format, color mode and EXIF metadata of an image",
	Long: `Decodes a single image and prints its detected format, dimensions and color
mode together with its EXIF summary. When the exiftool binary is installed,
every field it reports is listed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), args[0])
	},
}

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	Long: `Starts a web server exposing the converter over HTTP:

  GET  /api/formats   supported formats
  GET  /api/status    current job and statistics
  POST /api/scan      list matching files
  POST /api/convert   start a conversion job
  POST /api/stop      cancel the running job
  POST /api/delete    delete source or converted files of the last job
  GET  /ws            job events`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	for _, cmd := range []*cobra.Command{convertCmd, scanCmd} {
		cmd.Flags().StringVar(&directory, "dir", "", "directory to search")
		cmd.Flags().StringVar(&fromExt, "from", "", "source extension (e.g. jpg)")
		cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns relative to --dir to skip (repeatable)")
	}
	convertCmd.Flags().StringVar(&toExt, "to", "", "target extension (e.g. webp)")
	convertCmd.Flags().IntVar(&compression, "compression", 0, "quality passed to the encoder (1-100)")
	convertCmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "fail instead of replacing an existing target file")
	convertCmd.Flags().StringVar(&manifestPath, "manifest", "", "write the converted file list to this YAML file")
	convertCmd.Flags().StringVar(&deleteClass, "delete", "", "after converting, delete \"source\" or \"converted\" files")

	deleteCmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest written by convert --manifest")
	deleteCmd.Flags().StringVar(&fileClass, "class", "", "\"source\" or \"converted\"")
	_ = deleteCmd.MarkFlagRequired("manifest")
	_ = deleteCmd.MarkFlagRequired("class")

	serveCmd.Flags().IntVar(&port, "port", 0, "port to run web server on (default from config, 8080)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// runWizard runs the interactive flow. Logs go to the log file only.
func runWizard() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return errors.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg, false)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wizard := console.NewWizard(
		console.WithWizardLogger(log),
		console.WithEngineOptions(engineOptions(cfg)...),
	)
	err = wizard.Run(ctx)
	if errors.Is(err, context.Canceled) {
		console.NewPrinter(os.Stdout).Error("Operation cancelled by user")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("Wizard failed")
		return errReported
	}
	return nil
}

// runConvert converts with values from flags, falling back to the config.
func runConvert(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateJob(); err != nil {
		return err
	}

	var class converter.FileClass
	if deleteClass != "" {
		if class, err = converter.ParseFileClass(deleteClass); err != nil {
			return err
		}
	}

	log := setupLogger(cfg, !quiet)
	stats := statistics.NewStatistics()
	progress := console.NewProgress(os.Stdout, verbose, !quiet)
	opts := append(engineOptions(cfg),
		converter.WithLogger(log),
		converter.WithObserver(stats),
		converter.WithObserver(progress),
	)
	engine := converter.New(cfg.Directory, cfg.SourceExtension, cfg.TargetExtension, cfg.Compression, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = engine.Convert(ctx)
	progress.Stop()
	stats.Finalize()

	if manifestPath != "" && (err == nil || engine.ConversionCount() > 0) {
		if saveErr := manifest.FromEngine(engine, time.Now()).Save(manifestPath); saveErr != nil {
			log.WithError(saveErr).Error("Failed to save manifest")
		} else {
			log.WithField("manifest", manifestPath).Info("Manifest saved")
		}
	}

	printer := console.NewPrinter(os.Stdout)
	if errors.Is(err, context.Canceled) {
		printer.Error(fmt.Sprintf("Operation cancelled by user after %d files", engine.ConversionCount()))
		return nil
	}
	if err != nil {
		return err
	}

	if !quiet {
		printer.Celebrate(fmt.Sprintf("Conversion complete! %d files converted", engine.ConversionCount()))
		if err := printer.Summary(stats.Snapshot()); err != nil {
			return err
		}
	}

	if class == "" {
		return nil
	}
	success, total, err := engine.DeleteFiles(class)
	if err != nil {
		return errors.Errorf("deleted %d/%d %s files: %w", success, total, class, err)
	}
	if !quiet {
		printer.Success(fmt.Sprintf("Successfully deleted %d/%d %s files", success, total, class))
	}
	return nil
}

// runDelete deletes one class of files listed in a manifest.
func runDelete() error {
	class, err := converter.ParseFileClass(fileClass)
	if err != nil {
		return err
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return errors.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(cfg, !quiet)

	engine := m.Engine(
		converter.WithLogger(log),
		converter.WithObserver(console.NewProgress(os.Stdout, verbose, false)),
	)
	success, total, err := engine.DeleteFiles(class)
	if err != nil {
		return errors.Errorf("deleted %d/%d %s files: %w", success, total, class, err)
	}
	if !quiet {
		console.NewPrinter(os.Stdout).Success(fmt.Sprintf("Successfully deleted %d/%d %s files", success, total, class))
	}
	return nil
}

// runScan prints every file a conversion would pick up.
func runScan(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Directory == "" {
		cfg.Directory = "."
	}

	log := setupLogger(cfg, !quiet)
	engine := converter.New(cfg.Directory, cfg.SourceExtension, cfg.TargetExtension, cfg.Compression,
		converter.WithLogger(log),
		converter.WithExclude(cfg.Conversion.Exclude...),
	)

	files, err := engine.Scan(context.Background())
	if err != nil {
		return errors.Errorf("scan failed: %w", err)
	}

	for _, f := range files {
		fmt.Println(f)
	}
	if !quiet {
		console.NewPrinter(os.Stderr).Info(fmt.Sprintf("%d .%s files under %s", len(files), cfg.SourceExtension, cfg.Directory))
	}
	return nil
}

// runInspect prints what the codec and the metadata readers see in path.
func runInspect(out io.Writer, path string) error {
	c := codec.New()
	img, err := c.Decode(path)
	if err != nil {
		return errors.Errorf("inspect %s: %w", path, err)
	}

	printer := console.NewPrinter(out)
	b := img.Image.Bounds()
	info := []metadata.Tag{
		{Name: "File", Value: path},
		{Name: "Format", Value: img.Format.String()},
		{Name: "Dimensions", Value: fmt.Sprintf("%dx%d", b.Dx(), b.Dy())},
		{Name: "Mode", Value: codec.Mode(img.Image)},
		{Name: "Alpha", Value: fmt.Sprint(codec.HasAlpha(img.Image))},
		{Name: "Size", Value: statistics.FormatBytes(img.Size)},
	}
	if err := printer.Tags("Image", info); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("read %s: %w", path, err)
	}
	if meta, err := metadata.Extract(data); err == nil {
		if err := printer.Tags("EXIF summary", meta.Summary()); err != nil {
			return err
		}
	}

	tags, err := metadata.LookupTags(data)
	if err != nil && !errors.Is(err, metadata.ErrNoEXIF) {
		printer.Warning(fmt.Sprintf("EXIF: %v", err))
	}
	if err := printer.Tags("EXIF", tags); err != nil {
		return err
	}

	fields, err := metadata.ExifToolTags(path)
	if err != nil {
		printer.Info(fmt.Sprintf("exiftool not available: %v", err))
		return nil
	}
	return printer.Tags("exiftool", fields)
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = port
	}

	log := setupLogger(cfg, !quiet)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Web.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("🚀 imageconvert API started on http://localhost:%d\n", cfg.Web.Port)
	fmt.Printf("🛑 Press Ctrl+C to stop the server\n\n")

	<-sigChan
	fmt.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return errors.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("✅ Server stopped gracefully")
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, errors.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Directory = config.ExpandPath(directory)
	}
	if flags.Changed("from") {
		cfg.SourceExtension = converter.NormalizeExtension(fromExt)
	}
	if flags.Changed("to") {
		cfg.TargetExtension = converter.NormalizeExtension(toExt)
	}
	if flags.Changed("compression") {
		cfg.Compression = compression
	}
	if flags.Changed("exclude") {
		cfg.Conversion.Exclude = exclude
	}
	if flags.Changed("no-overwrite") {
		cfg.Conversion.Overwrite = !noOverwrite
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func engineOptions(cfg *config.Config) []converter.Option {
	return []converter.Option{
		converter.WithOverwrite(cfg.Conversion.Overwrite),
		converter.WithExclude(cfg.Conversion.Exclude...),
		converter.WithAVIFSpeed(cfg.Conversion.AVIFSpeed),
	}
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config, toConsole bool) *logrus.Logger {
	opts := cfg.LoggerOptions()
	opts.Console = toConsole && !quiet

	if verbose {
		opts.Level = "debug"
	}
	if quiet {
		opts.Level = "error"
	}

	log, err := logger.New(opts)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
