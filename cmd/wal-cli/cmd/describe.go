package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backbone81/nano-wal/pkg/wal"
)

// describeCmd represents the describe command.
var describeCmd = &cobra.Command{
	Use:          "describe",
	Short:        "Provides detailed information about the write-ahead log.",
	Long:         `Provides detailed information about the write-ahead log.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := wal.New(directory)
		if err != nil {
			return err
		}
		defer func() {
			if err := log.Close(); err != nil {
				fmt.Println(err)
			}
		}()

		keys := log.EnumerateKeys()
		if len(keys) == 0 {
			return fmt.Errorf("no segment found in %q", directory)
		}

		for _, key := range keys {
			records := log.EnumerateRecords(wal.StringKey(key))
			recordCount := 0
			contentBytes := 0
			for records.Next() {
				recordCount++
				contentBytes += len(records.Value())
			}
			iterErr := records.Err()
			if err := records.Close(); err != nil {
				return err
			}
			if iterErr != nil {
				return iterErr
			}

			fmt.Printf("Key:           %s\n", key)
			fmt.Printf("Records:       %d\n", recordCount)
			fmt.Printf("Content Bytes: %d\n", contentBytes)
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
