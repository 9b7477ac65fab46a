package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tubedeck/services"
	"tubedeck/types"
)

var (
	formatID  string
	outputDir string
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download one video through the download service and save it locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newRemoteClient(cfg)
		if err != nil {
			return err
		}
		orchestrator := services.NewOrchestrator(client, cfg.PollInterval)
		defer orchestrator.Close()

		dir := outputDir
		if dir == "" {
			dir = cfg.DownloadLocation
		}
		_, err = runGet(cmd.Context(), orchestrator, args[0], formatID, dir, cmd.OutOrStdout())
		return err
	},
}

func init() {
	getCmd.Flags().StringVarP(&formatID, "format", "f", "", "Variant id to download (default: highest ranked)")
	getCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to save into (default: download_location)")
}

// runGet adds rawURL, downloads variantID (or the top-ranked variant) and saves
// the artifact into outDir. It returns the saved path.
func runGet(ctx context.Context, o services.Orchestrator, rawURL, variantID, outDir string, out io.Writer) (string, error) {
	item, err := o.AddItem(ctx, rawURL)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, videoSummary(item.VideoInfo))

	variant, err := pickVariant(item, variantID)
	if err != nil {
		return "", err
	}
	printInfo(out, "Variant "+variant.ID+": "+variant.Label())
	if err := o.SelectVariant(item.ID, variant.ID); err != nil {
		return "", err
	}

	_, updates, unsubscribe := o.Subscribe()
	defer unsubscribe()
	if _, err := o.StartDownload(ctx, item.ID); err != nil {
		return "", err
	}

	if err := waitForJob(ctx, item.ID, updates, out); err != nil {
		return "", err
	}

	artifact, err := o.FetchArtifact(ctx, item.ID)
	if err != nil {
		return "", err
	}
	defer artifact.Body.Close()

	path, err := saveArtifact(artifact, outDir, out)
	if err != nil {
		return "", err
	}
	printSuccess(out, "Saved "+path)
	return path, nil
}

func pickVariant(item types.Item, variantID string) (types.Variant, error) {
	if variantID == "" {
		if len(item.Variants) == 0 {
			return types.Variant{}, fmt.Errorf("%w: %s offers no downloadable variants", services.ErrValidation, item.ID)
		}
		return item.Variants[0], nil
	}
	for _, v := range item.Variants {
		if v.ID == variantID {
			return v, nil
		}
	}
	return types.Variant{}, fmt.Errorf("%w: variant %q is not offered for %s; run `tubedeck formats` to list them",
		services.ErrValidation, variantID, item.ID)
}

// waitForJob renders job progress until the job is finished or failed
func waitForJob(ctx context.Context, id string, updates <-chan types.Snapshot, out io.Writer) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return errors.New("download tracking stopped")
			}
			item, found := snap.Find(id)
			if !found {
				return fmt.Errorf("%w: %s", services.ErrItemNotFound, id)
			}
			if item.Job == nil {
				continue
			}
			bar.Set(item.Job.Percent)
			switch item.Job.Status {
			case types.JobStatusFinished:
				bar.Finish()
				fmt.Fprintln(out)
				return nil
			case types.JobStatusError:
				fmt.Fprintln(out)
				return fmt.Errorf("download failed: %s", item.Job.Error)
			}
		}
	}
}

// saveArtifact streams the artifact into dir without overwriting existing files
func saveArtifact(artifact *types.Artifact, dir string, out io.Writer) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := uniquePath(filepath.Join(dir, artifact.FileName))
	partial := path + ".part"

	file, err := os.Create(partial)
	if err != nil {
		return "", err
	}
	bar := progressbar.NewOptions64(artifact.Size,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("saving"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
	)
	_, copyErr := io.Copy(io.MultiWriter(file, bar), artifact.Body)
	closeErr := file.Close()
	fmt.Fprintln(out)
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return "", err
	}
	return path, nil
}

// uniquePath appends -(n) before the extension until the path is unused
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	for index := 1; ; index++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
