package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scholarcsv/scholar-harvest-service/pkg/harvestclient"
)

var downloadCmd = &cobra.Command{
	Use:   "download <filename>",
	Short: "Download a stored CSV artifact",
	Long: `Download fetches a CSV artifact from the service by filename.
Artifacts are ephemeral; once the retention window elapses the service
forgets them and the download fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		outputDir, _ := cmd.Flags().GetString("output")
		filename := args[0]

		client := harvestclient.New(server, nil)
		content, err := client.Download(cmd.Context(), filename)
		if err != nil {
			return err
		}

		path := filepath.Join(outputDir, filename)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("output", ".", "directory to save the CSV into")

	rootCmd.AddCommand(downloadCmd)
}
