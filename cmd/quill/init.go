package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillform/quill/internal/config"
	"github.com/quillform/quill/internal/home"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the quill home directory",
	Long: `Create the quill home directory and write a default config file.

An existing config file is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		if h.ConfigExists() {
			fmt.Printf("config already exists at %s\n", h.ConfigPath())
			return nil
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("wrote default config to %s\n", h.ConfigPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
