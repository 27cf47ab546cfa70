package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bufferplan/internal/buildinfo"
	"bufferplan/internal/config"
	"bufferplan/internal/genetic"
	"bufferplan/internal/metrics"
	"bufferplan/internal/network"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to the YAML scenario file")
		seed        = flag.Int64("seed", 0, "override the solver seed (0 = from config or wall clock)")
		metricsAddr = flag.String("metrics-addr", "", "optional listen address for Prometheus metrics")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("planner " + buildinfo.Short())
		return
	}
	if *configPath == "" {
		log.Fatal("missing -config")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	net, err := network.Build(cfg.Declarations(), cfg.Horizons())
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}

	metrics.RegisterDefault()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			log.Printf("metrics listening on %s", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	params := cfg.SolverParams()
	if *seed != 0 {
		params.Seed = *seed
	}

	start := time.Now()
	res, err := genetic.Optimize(net, params)
	if err != nil {
		log.Fatalf("optimization failed: %v", err)
	}
	printResult(net, res, time.Since(start))
}

func printResult(net *network.Network, res *genetic.Result, elapsed time.Duration) {
	fmt.Printf("run %s finished in %v\n", res.RunID, elapsed.Round(time.Millisecond))
	fmt.Printf("generations=%d evaluations=%d improvements=%d faults=%d\n",
		res.Stats.Generations, res.Stats.Evaluations, res.Stats.Improvements, res.Stats.Faults)
	fmt.Printf("best cost: %.4f, active buffers: %d\n",
		res.Stats.BestCost, res.BestPlan.Prop.BufferedCount())

	fmt.Println("\nstation  buffer  leadtime  avg-demand      TOR      TOY      TOG")
	for s := 0; s < net.StationCount(); s++ {
		prop := res.BestPlan.Prop
		z := res.BestPlan.Zones[s]
		mark := " "
		if prop.Buffered(s) {
			mark = "*"
		}
		fmt.Printf("%7d  %6s  %8d  %10.2f  %7.2f  %7.2f  %7.2f\n",
			s, mark, prop.LeadTime(s), prop.AverageDemand(s), z.TOR, z.TOY, z.TOG)
	}

	fmt.Println("\nfitness curve:")
	for _, f := range res.FitnessCurve {
		fmt.Printf("  %.9f\n", f)
	}
}
