package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backbone81/nano-wal/pkg/wal"
)

// keysCmd represents the keys command.
var keysCmd = &cobra.Command{
	Use:          "keys",
	Short:        "Lists every key known to the write-ahead log.",
	Long:         `Lists every key known to the write-ahead log.`,
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

		for _, key := range log.EnumerateKeys() {
			fmt.Println(key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
