package main

import (
	"fmt"
	"os"

	"SurfSense/pkg/zlog"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "surfsense",
	Short: "SurfSense document indexing service",
	Long: `Indexes connector documents into a searchable knowledge base.

Documents are deduplicated by identity and content hash, summarized,
chunked, embedded and stored in MySQL; chunk vectors are mirrored to Milvus.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 必须在首次 GetConfig 之前设置
		if configPath != "" {
			return os.Setenv("SURFSENSE_CONFIG", configPath)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config_local.toml or $SURFSENSE_CONFIG)")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	err := rootCmd.Execute()
	zlog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
