// Package rageshake ties log capture, persistence, retention and bug
// report submission together behind one long-lived Service.
//
// A host creates the Service once at startup, calls Init, routes its
// diagnostic output through Console or Writer, and calls SendReport when
// the user asks to file a bug:
//
//	svc := rageshake.New(rageshake.Options{
//		DBPath:   "/var/lib/app/logs.db",
//		Endpoint: "https://rageshake.example.org/api/submit",
//		Version:  report.StaticVersion("1.4.0"),
//	})
//	if err := svc.Init(ctx); err != nil {
//		return err
//	}
//	defer svc.Close(ctx)
//	console := svc.Console()
//	console.Warn("Failed to set badge count")
//	err := svc.SendReport(ctx, "Sync stopped after resume")
package rageshake
