// Package httpd implements the HTTP server command.
package httpd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/goresearch/internal/api"
	"github.com/jonesrussell/goresearch/internal/bootstrap"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

// Command returns the httpd command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the ingestion HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(*cfgFile, *debug)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			defer app.Close()

			handler := api.NewHandler(app.Service, app.Config.Ingest.MaxLinks, app.Logger)
			server := api.NewServer(app.Config.Server, app.Logger, app.Config.App.Debug, nil)
			api.RegisterRoutes(server.Router(), handler, telemetry.Handler())

			return server.RunWithGracefulShutdown(cmd.Context())
		},
	}
}
