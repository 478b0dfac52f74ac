package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backbone81/nano-wal/pkg/wal"
)

// compactCmd represents the compact command.
var compactCmd = &cobra.Command{
	Use:          "compact",
	Short:        "Removes expired segments from the write-ahead log.",
	Long:         `Removes expired segments from the write-ahead log. The active segment of a key is never removed.`,
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

		removed, err := log.Compact()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired segment file(s).\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
