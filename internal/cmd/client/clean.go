package client

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// DefaultColumns are the columns kept by clean and expected by send.
var DefaultColumns = []string{"Date", "Hour", "Ontario Demand"}

// NewCleanCommand constructs the `clean` command.
func NewCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Normalize raw demand CSV files into Date,Hour,Ontario Demand",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			cols, _ := cmd.Flags().GetStringSlice("columns")

			files, err := filepath.Glob(filepath.Join(in, "*.csv"))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Looking for CSV files in: %s\n", in)
			fmt.Fprintf(w, "Found %d files to process\n", len(files))
			if len(files) == 0 {
				return fmt.Errorf("no CSV files found in %s", in)
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(w, "Processing: %s\n", filepath.Base(f))
				dst, err := CleanFile(f, out, cols)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(f), err)
				}
				fmt.Fprintf(w, "  Saved: %s\n", filepath.Base(dst))
			}
			fmt.Fprintf(w, "Processed files saved in: %s\n", out)
			return nil
		},
	}
	cmd.Flags().String("in", filepath.Join("cleaner", "input"), "Directory holding raw CSV files")
	cmd.Flags().String("out", filepath.Join("cleaner", "processed"), "Directory for normalized CSV files")
	cmd.Flags().StringSlice("columns", DefaultColumns, "Columns to keep, in output order")
	return cmd
}

// CleanFile normalizes src into outDir as <base>P.csv and returns the
// output path.
func CleanFile(src, outDir string, columns []string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(outDir, base+"P"+filepath.Ext(src))
	var buf bytes.Buffer
	if err := CleanCSV(in, &buf, columns); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// CleanCSV skips preamble lines up to the first line mentioning every
// column name, then writes only the wanted columns that exist, in the
// order given. When no line mentions them all, the first line is the header.
func CleanCSV(r io.Reader, w io.Writer, columns []string) error {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	skip := 0
	for i, line := range lines {
		if containsAll(line, columns) {
			skip = i
			break
		}
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines[skip:], "\n")))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("no header row")
	}
	if err != nil {
		return err
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[strings.TrimSpace(h)]; !dup {
			index[strings.TrimSpace(h)] = i
		}
	}
	var keep []int
	var names []string
	for _, c := range columns {
		if i, ok := index[c]; ok {
			keep = append(keep, i)
			names = append(names, c)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return err
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(keep))
		for j, i := range keep {
			if i < len(rec) {
				row[j] = strings.TrimSpace(rec[i])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func containsAll(line string, cols []string) bool {
	for _, c := range cols {
		if !strings.Contains(line, c) {
			return false
		}
	}
	return true
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
