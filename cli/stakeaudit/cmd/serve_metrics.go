package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/namada-utils/stakeaudit/observability"
)

type serveMetricsConfig struct {
	Base       *baseConfiguration
	ListenAddr string
}

func newServeMetricsCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &serveMetricsConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "serves staking state and token supplies of the chain as Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execServeMetricsCmd(cmd, config)
		},
	}
	cmd.Flags().StringVar(&config.ListenAddr, "listen", "localhost:9260", "address the metrics are served on")
	return cmd
}

func execServeMetricsCmd(cmd *cobra.Command, config *serveMetricsConfig) error {
	handler, err := config.metricsHandler()
	if err != nil {
		return err
	}
	server := http.Server{
		Addr:              config.ListenAddr,
		Handler:           handler,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      config.Base.RPCTimeout + 5*time.Second,
		IdleTimeout:       30 * time.Second,
	}
	config.Base.log.InfoContext(cmd.Context(), fmt.Sprintf("serving metrics on http://%s/metrics", config.ListenAddr))
	return httpsrv.Run(cmd.Context(), server, httpsrv.ShutdownTimeout(5*time.Second))
}

// metricsHandler returns router serving the chain state together with the
// metrics of the chain client.
func (config *serveMetricsConfig) metricsHandler() (http.Handler, error) {
	base := config.Base
	r, err := base.resolver()
	if err != nil {
		return nil, err
	}
	tokens, err := base.tool.tokens(r)
	if err != nil {
		return nil, err
	}
	client, err := base.chainClient()
	if err != nil {
		return nil, err
	}
	collected := make([]observability.Token, len(tokens))
	for i, t := range tokens {
		collected[i] = observability.Token{Name: t.Name, Address: t.Address}
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(observability.NewChainCollector(client, tokens[0].Address, collected, base.tool.TokenDecimals, base.RPCTimeout, base.log)); err != nil {
		return nil, fmt.Errorf("registering chain collector: %w", err)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{registry, base.metrics.Registry()},
		promhttp.HandlerOpts{MaxRequestsInFlight: 1, ErrorHandling: promhttp.ContinueOnError},
	)).Methods(http.MethodGet)
	return router, nil
}
