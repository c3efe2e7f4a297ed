package main

import (
	"context"
	"flag"

	"staybook/internal/engine"
	"staybook/pkg/app"
	"staybook/pkg/config"
)

const JobName = "sweeper"

func main() {
	once := flag.Bool("once", false, "run a single sweep pass and exit")
	flag.Parse()

	cfg := config.Load(JobName)
	eng, err := engine.Build(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking engine", "error", err)
	}

	if *once {
		res, err := eng.Sweeper.RunOnce(context.Background())
		for _, c := range eng.Closers() {
			_ = c.Close()
		}
		cfg.GracefulShutdown()
		if err != nil {
			cfg.Log.Fatal("Sweep failed", "error", err)
		}
		cfg.Log.Info("Sweep completed", "expired", res.Expired, "completed", res.Completed, "failed", res.Failed)
		return
	}

	worker := app.NewApplication(cfg)
	worker.AddWorker("sweeper", eng.Sweeper.Start)
	for _, c := range eng.Closers() {
		worker.AddCloser(c)
	}
	worker.RunWorkers()
}
