// Package retention enforces retention limits on captured traces and
// stored tests. A Sweeper drives the storage layer's cleanup operation with
// configured age and count limits; a cron-based Scheduler runs sweeps
// automatically.
//
//	sweeper := retention.NewSweeper(store, &retention.Config{
//	    MaxAge:   90 * 24 * time.Hour,
//	    Schedule: "0 3 * * *", // daily at 3 AM
//	})
//	if err := sweeper.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sweeper.Stop()
package retention
