package client

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/pubrt/internal/cmd/client/transports"
)

// NewWatchCommand constructs the `watch` command.
func NewWatchCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print records from /stream, replaying from the start then tailing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, _ := cmd.Flags().GetString("api")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")
			withID, _ := cmd.Flags().GetBool("with-id")

			t := newTransport(resolveAPI(api, baseURL))
			w := cmd.OutOrStdout()
			err := t.Stream(cmd.Context(), transports.StreamRequest{Filter: filter, Limit: limit}, func(ev transports.Event) error {
				if withID {
					_, err := fmt.Fprintf(w, "%s\t%s\n", ev.ID, ev.Data)
					return err
				}
				_, err := fmt.Fprintf(w, "%s\n", ev.Data)
				return err
			})
			if errors.Is(err, transports.ErrStreamEnded) {
				fmt.Fprintln(cmd.ErrOrStderr(), "stream closed by server")
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("api", "", "Server base URL (default $PUBRT_API_URL or http://127.0.0.1:8000)")
	cmd.Flags().Int("limit", 0, "Stop after N records (0 = follow forever)")
	cmd.Flags().String("filter", "", "CEL filter over json, position, ts_ms, size")
	cmd.Flags().Bool("with-id", false, "Prefix each record with its position")
	return cmd
}
