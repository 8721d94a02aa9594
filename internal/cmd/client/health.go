package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/pubrt/internal/cmd/client/transports"
)

// NewHealthCommand constructs the `health` command.
func NewHealthCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show server health over HTTP, or over gRPC with --grpc",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, _ := cmd.Flags().GetString("api")
			useGRPC, _ := cmd.Flags().GetBool("grpc")
			addr, _ := cmd.Flags().GetString("grpc-addr")
			service, _ := cmd.Flags().GetString("service")

			if useGRPC {
				if addr == "" {
					addr = grpcAddrFromEnv()
				}
				status, err := transports.NewGrpcHealth(dialGRPC(addr)).Check(cmd.Context(), service)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "status:", status)
				return nil
			}

			h, err := newTransport(resolveAPI(api, baseURL)).Health(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(h)
		},
	}
	cmd.Flags().String("api", "", "Server base URL (default $PUBRT_API_URL or http://127.0.0.1:8000)")
	cmd.Flags().Bool("grpc", false, "Query the gRPC health service instead of HTTP")
	cmd.Flags().String("grpc-addr", "", "gRPC address (default $PUBRT_GRPC or 127.0.0.1:50051)")
	cmd.Flags().String("service", "", "gRPC health service name (empty = whole server)")
	return cmd
}
