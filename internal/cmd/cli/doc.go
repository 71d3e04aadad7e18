// Package cli contains the Cobra commands of the trail binary.
//
// Commands operate directly on a segment directory:
//
//	trail log lead_created --entity LEAD-001 --details '{"source":"webform"}'
//	trail query --kind email_sent --last 24h
//	trail stats --format json
//	trail export --format csv --output events.csv
//	trail verify
//
// The data directory resolves from --data-dir, then the config file's
// dataDir, then an OS-specific application directory.
package cli
