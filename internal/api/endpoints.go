package api

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillform/quill/internal/bridge"
	"github.com/quillform/quill/internal/tools"
)

// PingEndpoint checks that a bridge is listening.
type PingEndpoint struct{}

func (e *PingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the bridge is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := getServerURL()
			if err := NewClient(url).Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("bridge is up at %s\n", url)
			return nil
		},
	}
}

// ToolEndpoint dispatches one tool call through POST /tool.
type ToolEndpoint struct{}

func (e *ToolEndpoint) Command(getServerURL func() string) *cobra.Command {
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "tool <name>",
		Short: "Dispatch a tool call to the bridge",
		Long: `Dispatch a single tool call through the bridge and print the result.

Parameters are passed as a JSON object.

Examples:
  quill api tool parse_instructions --params '{"text":"[{\"selector\":\"#a\",\"value\":\"b\"}]"}'
  quill api tool generate_instructions --params '{"form_html":"<form>...</form>"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := bridge.ToolRequest{Tool: args[0]}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &req.Params); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}

			var result tools.Result
			client := NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/tool", req, &result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("tool %s failed: %s", req.Tool, result.Error)
			}
			return Output(result.Data)
		},
	}

	cmd.Flags().StringVar(&paramsJSON, "params", "", "tool parameters as a JSON object")
	return cmd
}
