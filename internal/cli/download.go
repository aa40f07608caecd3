package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whisperd/whisperd/internal/download"
	"github.com/whisperd/whisperd/internal/whisper"
)

// newDownloadCmd pre-fetches a model into the cache directory so an
// air-gapped deployment never reaches out to Hugging Face at runtime.
func newDownloadCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [model]",
		Short: "Download a model into the cache directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := app.cfg.ModelName
			if len(args) == 1 {
				name = args[0]
			}

			spec, err := whisper.ResolveModelName(name)
			if err != nil {
				return err
			}

			targetDir := spec.LocalDir(app.cfg.ModelDir)
			if err := os.MkdirAll(targetDir, 0o755); err != nil {
				return fmt.Errorf("create model directory %s: %w", targetDir, err)
			}

			logger := app.log()
			logger.Info("downloading model", zap.String("model", spec.Name), zap.String("destination", targetDir))

			for _, file := range whisper.ModelFiles {
				destination := filepath.Join(targetDir, file)
				if _, err := os.Stat(destination); err == nil {
					logger.Info("already present, skipping", zap.String("file", file))
					continue
				}

				if err := download.DownloadFile(cmd.Context(), download.Options{
					URL:         spec.FileURL(file),
					Destination: destination,
					NoProgress:  app.noProgress,
					Logger:      logger,
				}); err != nil {
					return fmt.Errorf("download %s: %w", file, err)
				}
			}

			logger.Info("model ready", zap.String("model", spec.Name), zap.String("path", targetDir))
			fmt.Fprintf(cmd.OutOrStdout(), "model %s downloaded to %s\n", spec.Name, targetDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	return cmd
}
