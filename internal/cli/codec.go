package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/wire"
)

const (
	formatHex    = "hex"
	formatBase64 = "base64"
	formatRaw    = "raw"
)

func newEncodeCmd() *cobra.Command {
	var (
		file   string
		format string
		report bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON record to protobuf wire bytes",
		Long:  "Encode reads a telemetry record (or, with --report, a whole report) as JSON and writes its protobuf wire encoding.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var out []byte
			if report {
				var rep domain.Report
				if err := json.Unmarshal(in, &rep); err != nil {
					return fmt.Errorf("encode: parse report: %w", err)
				}
				if out, err = wire.MarshalReport(&rep); err != nil {
					return fmt.Errorf("encode: %w", err)
				}
			} else {
				var rec domain.Record
				if err := json.Unmarshal(in, &rec); err != nil {
					return fmt.Errorf("encode: parse record: %w", err)
				}
				out = wire.MarshalRecord(&rec)
			}

			w := cmd.OutOrStdout()
			switch format {
			case formatHex:
				_, err = fmt.Fprintln(w, hex.EncodeToString(out))
			case formatBase64:
				_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(out))
			case formatRaw:
				_, err = w.Write(out)
			default:
				return fmt.Errorf("encode: unknown format %q (want hex, base64 or raw)", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input JSON file (default stdin)")
	cmd.Flags().StringVar(&format, "format", formatHex, "output format: hex, base64 or raw")
	cmd.Flags().BoolVar(&report, "report", false, "input is a report envelope rather than a bare record")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var (
		file   string
		format string
		report bool
	)
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode protobuf wire bytes to a JSON record",
		Long:  "Decode reads a telemetry record (or, with --report, a whole report) in protobuf wire format and prints it as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var raw []byte
			switch format {
			case formatHex:
				raw, err = hex.DecodeString(string(bytes.TrimSpace(in)))
			case formatBase64:
				raw, err = base64.StdEncoding.DecodeString(string(bytes.TrimSpace(in)))
			case formatRaw:
				raw = in
			default:
				return fmt.Errorf("decode: unknown format %q (want hex, base64 or raw)", format)
			}
			if err != nil {
				return fmt.Errorf("decode: %s input: %w", format, err)
			}

			var v any
			if report {
				v, err = wire.UnmarshalReport(raw)
			} else {
				v, err = wire.UnmarshalRecord(raw)
			}
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input file (default stdin)")
	cmd.Flags().StringVar(&format, "format", formatHex, "input format: hex, base64 or raw")
	cmd.Flags().BoolVar(&report, "report", false, "input is a report envelope rather than a bare record")
	return cmd
}
