package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/fanout"
	"github.com/brightframe/investigator/internal/httpapi"
	"github.com/brightframe/investigator/internal/safety"
	"github.com/brightframe/investigator/internal/telemetry"
	"github.com/brightframe/investigator/internal/wiring"
	"github.com/brightframe/investigator/internal/wsapi"
)

var serveEnforce bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket surfaces (spec §6.3/§6.4)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveEnforce, "enforce", false, "run the safety harness in enforce mode instead of the observe-mode default")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	mode := safety.Observe
	if serveEnforce {
		mode = safety.Enforce
	}

	logger := telemetry.NewClueLogger()
	tracer := telemetry.NewClueTracer("investigator")
	factory := wiring.NewLoopFactory(cfg, mode, logger, tracer)

	bus := fanout.NewBus()
	store := httpapi.NewMemoryStore()
	server := httpapi.NewServer(factory, bus, store)
	ws := wsapi.NewHandler(bus, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	server.Register(r)
	ws.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fmt.Printf("listening on %s (mode=%v)\n", cfg.HTTPAddr, mode)
	return r.Run(cfg.HTTPAddr)
}
