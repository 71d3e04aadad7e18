// Package runtime wires configuration, key material, and the audit facade
// into a single-node trail instance. It exposes Open/Close, a basic health
// check, and access to the audit logger used by higher-level callers.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close(context.Background())
//	_ = rt.Audit().LogEvent("lead_created", "LEAD-001", nil)
package runtime
