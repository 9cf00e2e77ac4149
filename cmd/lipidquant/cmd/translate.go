package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/lipidquant/pkg/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [files...]",
	Short: "Translate raw files into chromatograms with an external converter",
	Long: `Run the configured converter for every file in the background and wait for all
of them. Large files are split into pieces of at most --max-piece-mb.

Examples:
  lipidquant translate --command "msconvert {file} --{format} --pieces {pieces}" run1.raw run2.raw`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	flags := translateCmd.Flags()
	flags.String("command", "", "Converter command line; {file}, {format} and {pieces} are substituted")
	flags.String("format", translate.DefaultFormat, "Raw file format handed to the converter")
	flags.Int64("max-piece-mb", translate.DefaultMaxPieceMB, "Maximum size of one translated piece in MB")
	flags.Duration("poll-interval", 0, "How often workers are polled (default from config)")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if cfg.Translate.Command == "" {
		return fmt.Errorf("no converter configured, please specify --command")
	}

	translator := &translate.ExecTranslator{Command: cfg.Translate.Command}
	workers := make([]*translate.Worker, 0, len(args))
	for _, path := range args {
		w := translate.NewWorker(path, translator,
			translate.WithFormat(cfg.Translate.Format),
			translate.WithMaxPieceMB(cfg.Translate.MaxPieceMB),
			translate.WithLogger(logger),
			translate.WithMetrics(appMetrics),
		)
		w.Start(cmd.Context())
		workers = append(workers, w)
	}

	var errs *multierror.Error
	for _, w := range workers {
		if err := w.Poll(cmd.Context(), cfg.Translate.PollInterval); err != nil {
			return err
		}
		if msg := w.Err(); msg != "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: %s", w.Path(), msg))
			continue
		}
		logger.Debug("translated", zap.String("job", w.ID()), zap.String("path", w.Path()))
		fmt.Fprintf(os.Stderr, "Translated %s\n", w.Path())
	}

	if err := errs.ErrorOrNil(); err != nil {
		printErrors("Some files could not be translated", err)
		return fmt.Errorf("%d of %d translations failed", len(errs.Errors), len(workers))
	}
	return nil
}
