package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/localnerve/jam-build-crm/internal/storage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Print object storage usage per folder as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := getContext()
		bucket, err := storage.Open(ctx, cfg)
		if err != nil {
			return err
		}
		return writeUsage(ctx, cmd.OutOrStdout(), storage.NewLifecycle(bucket, cfg.StorageHost, log))
	},
}

type usageDocument struct {
	Bucket    string              `yaml:"bucket"`
	TotalSize int64               `yaml:"totalSize"`
	Folders   storage.UsageReport `yaml:"folders"`
}

func writeUsage(ctx context.Context, w io.Writer, lifecycle *storage.Lifecycle) error {
	objects, err := lifecycle.Bucket().List(ctx)
	if err != nil {
		return fmt.Errorf("list bucket: %w", err)
	}
	report := storage.Aggregate(objects, lifecycle.URL)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(usageDocument{
		Bucket:    lifecycle.Bucket().Name(),
		TotalSize: report.TotalSize(),
		Folders:   report,
	})
}
