// Package app wires configuration, observability, the pipeline and the HTTP
// router into a runnable server.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML, .env and the environment
//	2. Initialize logging and OpenTelemetry
//	3. Build the pipeline context, which loads the ledger
//	4. Register the cache invalidation schedule, when configured
//	5. Set up middleware, API routes and /metrics
//	6. Start the HTTP server and wait for SIGINT or SIGTERM
//
// A missing ledger aborts step 3 with a fatal error; cmd/web exits 1.
//
// # Usage
//
//	application, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// The app does not call os.Exit; the main function controls the exit code.
package app
