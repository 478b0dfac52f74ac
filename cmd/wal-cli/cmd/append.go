package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backbone81/nano-wal/pkg/wal"
)

var (
	appendKey    string
	appendHeader string
)

// appendCmd represents the append command.
var appendCmd = &cobra.Command{
	Use:          "append [content]",
	Short:        "Appends a record to the write-ahead log.",
	Long:         `Appends a record to the write-ahead log. The record is flushed to stable storage before the command returns.`,
	Args:         cobra.ExactArgs(1),
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

		var header []byte
		if appendHeader != "" {
			header = []byte(appendHeader)
		}

		ref, err := log.LogEntry(wal.StringKey(appendKey), header, []byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Record appended at %s.\n", ref)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appendCmd)

	appendCmd.Flags().StringVarP(
		&appendKey,
		"key",
		"k",
		"",
		"The key to append the record under.",
	)
	_ = appendCmd.MarkFlagRequired("key")

	appendCmd.Flags().StringVarP(
		&appendHeader,
		"header",
		"H",
		"",
		"An optional record header to store with the record.",
	)
}
