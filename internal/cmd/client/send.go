package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	transports "github.com/rzbill/pubrt/internal/cmd/client/transports"
)

// SendSummary counts the outcome of a send run.
type SendSummary struct {
	Rows   int
	Sent   int
	Failed int
}

// NewSendCommand constructs the `send` command.
func NewSendCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send each row of a normalized CSV file to /ingest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			delay, _ := cmd.Flags().GetDuration("delay")
			api, _ := cmd.Flags().GetString("api")

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("CSV file not found at %s: %w", file, err)
			}
			defer f.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Found CSV file: %s\n", file)
			sum, err := SendCSV(cmd.Context(), newTransport(resolveAPI(api, baseURL)), f, filepath.Base(file), delay, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Data transmission complete: %d sent, %d failed\n", sum.Sent, sum.Failed)
			return nil
		},
	}
	cmd.Flags().String("file", filepath.Join("cleaner", "processed", "PUB_Demand_2024P.csv"), "Normalized CSV file to send")
	cmd.Flags().Duration("delay", envDelay(), "Delay between requests (env REQUEST_DELAY, seconds)")
	cmd.Flags().String("api", "", "Server base URL (default $PUBRT_API_URL or http://127.0.0.1:8000)")
	return cmd
}

// envDelay reads REQUEST_DELAY in whole seconds, defaulting to 1s.
func envDelay() time.Duration {
	if v := os.Getenv("REQUEST_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Second
}

// SendCSV posts one JSON object per CSV row, waiting delay between calls.
// Row failures are reported to out and do not stop the run.
func SendCSV(ctx context.Context, t transports.RecordsTransport, r io.Reader, name string, delay time.Duration, out io.Writer) (SendSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return SendSummary{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return SendSummary{}, fmt.Errorf("read csv: no header row")
	}
	header, rows := rows[0], rows[1:]
	fmt.Fprintf(out, "Loaded %d rows from %s\n", len(rows), name)

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	sum := SendSummary{Rows: len(rows)}
	for i, row := range rows {
		if err := limiter.Wait(ctx); err != nil {
			return sum, err
		}
		fmt.Fprintf(out, "Sending row %d/%d from %s\n", i+1, len(rows), name)
		body, err := rowJSON(header, row)
		if err != nil {
			sum.Failed++
			fmt.Fprintf(out, "  Error encoding row: %v\n", err)
			continue
		}
		total, err := t.Ingest(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Failed++
			fmt.Fprintf(out, "  Error sending data: %v\n", err)
			continue
		}
		sum.Sent++
		fmt.Fprintf(out, "  Server accepted, total_records=%d\n", total)
	}
	return sum, nil
}

// rowJSON encodes row as an object keyed by header, in header order.
// Integer and float cells become numbers and empty cells become null.
func rowJSON(header, row []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, h := range header {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		var cell string
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}
		v, err := cellJSON(cell)
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func cellJSON(cell string) ([]byte, error) {
	if cell == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return strconv.AppendInt(nil, n, 10), nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !isNonFinite(cell) {
		return json.Marshal(f)
	}
	return json.Marshal(cell)
}

// isNonFinite catches spellings ParseFloat accepts but JSON cannot carry.
func isNonFinite(s string) bool {
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity", "nan":
		return true
	}
	return false
}
