// Package client provides the collaborator commands of the `pubrt` CLI.
//
// They talk to a running pubrt server only over its HTTP API (and the gRPC
// health service for `health --grpc`).
//
// # Address configuration
//
// The HTTP base URL comes from --api, then PUBRT_API_URL, then API_URL,
// defaulting to http://127.0.0.1:8000. The gRPC address is read from
// --grpc-addr or PUBRT_GRPC (default 127.0.0.1:50051).
//
// Usage
//
//	# Normalize raw files: keeps Date, Hour, Ontario Demand; writes <name>P.csv
//	pubrt clean --in ./raw --out ./processed
//
//	# Send one row per second to /ingest
//	pubrt send --file ./processed/PUB_Demand_2024P.csv --delay 1s
//
//	# Print everything buffered so far, then follow
//	pubrt watch
//	pubrt watch --limit 10 --filter 'json["Ontario Demand"] > 15000.0'
//
//	pubrt health
//	pubrt health --grpc --service pubrt.Buffer
package client
