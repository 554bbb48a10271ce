package main

import (
	"github.com/spf13/cobra"

	"github.com/quillform/quill/internal/api"
	"github.com/quillform/quill/internal/home"
	"github.com/quillform/quill/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent run records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRunStore()
		if err != nil {
			return err
		}
		records, err := store.List(runsLimit)
		if err != nil {
			return err
		}
		return api.Output(records)
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRunStore()
		if err != nil {
			return err
		}
		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}
		return api.Output(rec)
	},
}

func openRunStore() (*runlog.Store, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	return runlog.NewStore(h.RunsPath()), nil
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum records to list, newest first")

	runsCmd.AddCommand(runsGetCmd)
	rootCmd.AddCommand(runsCmd)
}
