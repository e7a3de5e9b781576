package cli

import (
	"errors"
	"fmt"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"

	"github.com/spf13/cobra"
)

func newSchemaCommand(opts *options) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage constraints and the full-text index",
	}

	schemaCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create constraints and the full-text index if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.InitSchema(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Schema initialized.")
			return err
		},
	})

	return schemaCmd
}

func newPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ready, err := svc.Ready(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), map[string]bool{"ready": ready}); err != nil {
				return err
			}
			if !ready {
				return errors.New("store is not ready")
			}
			return nil
		},
	}
}

func newAddCommand(opts *options) *cobra.Command {
	var req services.CreateMemoryRequest

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Store a memory for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			memory, err := svc.CreateMemory(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), memory)
		},
	}

	addCmd.Flags().StringVar(&req.UserID, "user", "", "owning user id")
	addCmd.Flags().StringVar(&req.Text, "text", "", "memory text")

	return addCmd
}

func newSearchCommand(opts *options) *cobra.Command {
	req := services.SearchMemoriesRequest{Limit: entities.DefaultSearchLimit}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Full-text search over a user's memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			hits, err := svc.SearchMemories(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"results": hits})
		},
	}

	searchCmd.Flags().StringVar(&req.UserID, "user", "", "owning user id")
	searchCmd.Flags().StringVarP(&req.Query, "q", "q", "", "full-text query")
	searchCmd.Flags().IntVar(&req.Limit, "limit", entities.DefaultSearchLimit, "maximum number of results (1..50)")

	return searchCmd
}
