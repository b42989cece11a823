package main

import (
	"github.com/spf13/cobra"
	"github.com/swdee/go-headcount/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {

		runner, closeFn, err := newRunner()

		if err != nil {
			return err
		}

		defer closeFn()

		srv, err := api.NewServer(cfg.Server, runner, log)

		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "listen address")
}
