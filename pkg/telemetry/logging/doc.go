// Package logging provides the structured logger for the TraceForge
// storage layer, built on log/slog. It parses level and format from
// configuration and attaches component fields so failover and retention
// events are attributable.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr := storage.NewManager(storage.ManagerConfig{
//	    Primary: primary,
//	    Logger:  logger.Slog(),
//	})
package logging
