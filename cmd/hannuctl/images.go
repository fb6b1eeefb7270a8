package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hannu-storefront/internal/domain"

	"github.com/spf13/cobra"
)

// parseUploadArg splits "Product name=path/to/file.jpg"
func parseUploadArg(arg string) (name, path string, err error) {
	name, path, ok := strings.Cut(arg, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("expected <product name>=<file>, got %q", arg)
	}
	return name, path, nil
}

func newImagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage product images",
	}

	upload := &cobra.Command{
		Use:     "upload <product name>=<file>...",
		Short:   "Upload images and attach each one to the named product",
		Example: `  hannuctl images upload "Vestido Lino=./lino-1.jpg" "Vestido Lino=./lino-2.jpg"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]domain.UploadFile, 0, len(args))
			for _, arg := range args {
				name, path, err := parseUploadArg(arg)
				if err != nil {
					return err
				}
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				files = append(files, domain.UploadFile{
					Filename:    filepath.Base(path),
					ProductName: name,
					Content:     f,
				})
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			report, err := a.admin.MassUploadImages(ctx, files)
			if err != nil {
				return err
			}
			for _, r := range report.Results {
				if r.Success {
					fmt.Fprintf(a.out, "  %s -> %s\n", r.Filename, r.URL)
				} else {
					fmt.Fprintf(a.out, "  %s failed: %s\n", r.Filename, r.Error)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(upload)
	return cmd
}
