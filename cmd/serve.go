package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pable/go-telemetry-metrics/internal/metrics"
	"github.com/pable/go-telemetry-metrics/internal/server"
)

var (
	serveAddr    string
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports over HTTP",
	Long: `Start the HTTP service. Upload routes accept a raw CSV body or a multipart
"file" field; stored datasets are served from the database.

  POST /api/v1/interactions/report?server=&top=
  POST /api/v1/interactions/player/{name}?server=
  POST /api/v1/features?metric=&cluster=&k=&eps=&min_points=&seed=
  POST /api/v1/deaths?cause=&carriage=&server=
  POST /api/v1/shop
  GET  /api/v1/datasets
  GET  /api/v1/datasets/{prefix}/report
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config addr)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "do not open the dataset database")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	sc := server.Config{
		Settings:   cfg,
		Identities: ids,
		Metrics:    metrics.NewManager(metrics.WithGoCollectors()),
		Logger:     logBase,
	}
	if !serveNoStore {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		sc.Store = db
	}

	return server.New(sc).Run(cmd.Context(), addr)
}
