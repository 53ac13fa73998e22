// Package wire encodes telemetry records in the protobuf wire format.
//
// Field numbers follow telemetry.proto:
//
//	Record:  python_version=1 cli_version=2 huggingface_version=3 framework=4
//	         imports_init=5 imports_finish=6 feature=7 env=8 deprecated=10
//	Imports: torch=1 ... transformers=11 (domain.ImportNames order)
//	Feature: watch=1 finish=2 save=3
//	Env:     jupyter=1 kaggle=2
//	Deprecated: keras_callback__data_type=1 run__mode=2 run__save_no_args=3 run__join=4
//	Report:  run_id=1 entity=2 project=3 record=4 created_at=5 (google.protobuf.Timestamp)
//
// Only present fields and true flags are written. Unknown fields are skipped.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"runtelemetry/internal/telemetry/domain"
)

// ErrMalformed is returned when input is truncated or a known field has the wrong wire type.
var ErrMalformed = errors.New("wire: malformed message")

const (
	fieldPythonVersion      protowire.Number = 1
	fieldCLIVersion         protowire.Number = 2
	fieldHuggingfaceVersion protowire.Number = 3
	fieldFramework          protowire.Number = 4
	fieldImportsInit        protowire.Number = 5
	fieldImportsFinish      protowire.Number = 6
	fieldFeature            protowire.Number = 7
	fieldEnv                protowire.Number = 8
	fieldDeprecated         protowire.Number = 10
)

const (
	fieldReportRunID     protowire.Number = 1
	fieldReportEntity    protowire.Number = 2
	fieldReportProject   protowire.Number = 3
	fieldReportRecord    protowire.Number = 4
	fieldReportCreatedAt protowire.Number = 5
)

// MarshalRecord encodes r.
func MarshalRecord(r *domain.Record) []byte {
	if r == nil {
		return nil
	}
	return AppendRecord(nil, r)
}

// AppendRecord appends the encoding of r to b.
func AppendRecord(b []byte, r *domain.Record) []byte {
	b = appendOptionalString(b, fieldPythonVersion, r.PythonVersion)
	b = appendOptionalString(b, fieldCLIVersion, r.CLIVersion)
	b = appendOptionalString(b, fieldHuggingfaceVersion, r.HuggingfaceVersion)
	b = appendOptionalString(b, fieldFramework, r.Framework)
	if r.ImportsInit != nil {
		b = appendFlagsMessage(b, fieldImportsInit, r.ImportsInit.Flags())
	}
	if r.ImportsFinish != nil {
		b = appendFlagsMessage(b, fieldImportsFinish, r.ImportsFinish.Flags())
	}
	if r.Feature != nil {
		b = appendFlagsMessage(b, fieldFeature, r.Feature.Flags())
	}
	if r.Env != nil {
		b = appendFlagsMessage(b, fieldEnv, r.Env.Flags())
	}
	if r.Deprecated != nil {
		b = appendFlagsMessage(b, fieldDeprecated, r.Deprecated.Flags())
	}
	return b
}

// UnmarshalRecord decodes b into a new Record.
func UnmarshalRecord(b []byte) (*domain.Record, error) {
	r := &domain.Record{}
	if err := MergeRecord(b, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MergeRecord decodes b into r. Repeated sub-messages are merged, as protobuf does.
func MergeRecord(b []byte, r *domain.Record) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldPythonVersion, fieldCLIVersion, fieldHuggingfaceVersion, fieldFramework:
			if typ != protowire.BytesType {
				return malformed(fmt.Errorf("field %d: wire type %d", num, typ))
			}
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldPythonVersion:
				r.SetPythonVersion(s)
			case fieldCLIVersion:
				r.SetCLIVersion(s)
			case fieldHuggingfaceVersion:
				r.SetHuggingfaceVersion(s)
			case fieldFramework:
				r.SetFramework(s)
			}
		case fieldImportsInit, fieldImportsFinish, fieldFeature, fieldEnv, fieldDeprecated:
			if typ != protowire.BytesType {
				return malformed(fmt.Errorf("field %d: wire type %d", num, typ))
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
			var flags []*bool
			switch num {
			case fieldImportsInit:
				flags = r.InitImports().Flags()
			case fieldImportsFinish:
				flags = r.FinishImports().Flags()
			case fieldFeature:
				flags = r.Features().Flags()
			case fieldEnv:
				flags = r.Environment().Flags()
			case fieldDeprecated:
				flags = r.Deprecations().Flags()
			}
			if err := consumeFlags(v, flags); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// MarshalReport encodes rep including its record.
func MarshalReport(rep *domain.Report) ([]byte, error) {
	if rep == nil {
		return nil, nil
	}
	var b []byte
	b = appendString(b, fieldReportRunID, rep.RunID)
	b = appendString(b, fieldReportEntity, rep.Entity)
	b = appendString(b, fieldReportProject, rep.Project)
	if !rep.Record.Empty() {
		b = protowire.AppendTag(b, fieldReportRecord, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalRecord(&rep.Record))
	}
	if !rep.CreatedAt.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(rep.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("wire: created_at: %w", err)
		}
		b = protowire.AppendTag(b, fieldReportCreatedAt, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

// UnmarshalReport decodes a Report.
func UnmarshalReport(b []byte) (*domain.Report, error) {
	rep := &domain.Report{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		b = b[n:]
		if num < fieldReportRunID || num > fieldReportCreatedAt {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if typ != protowire.BytesType {
			return nil, malformed(fmt.Errorf("field %d: wire type %d", num, typ))
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldReportRunID:
			rep.RunID = string(v)
		case fieldReportEntity:
			rep.Entity = string(v)
		case fieldReportProject:
			rep.Project = string(v)
		case fieldReportRecord:
			if err := MergeRecord(v, &rep.Record); err != nil {
				return nil, err
			}
		case fieldReportCreatedAt:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return nil, malformed(err)
			}
			rep.CreatedAt = ts.AsTime()
		}
	}
	return rep, nil
}

func appendOptionalString(b []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *s)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return appendOptionalString(b, num, &s)
}

// appendFlagsMessage writes a sub-message of bool fields numbered from 1. The
// sub-message is written even when no flag is set so presence survives a round trip.
func appendFlagsMessage(b []byte, num protowire.Number, flags []*bool) []byte {
	var msg []byte
	for i, f := range flags {
		if *f {
			msg = protowire.AppendTag(msg, protowire.Number(i+1), protowire.VarintType)
			msg = protowire.AppendVarint(msg, protowire.EncodeBool(true))
		}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func consumeFlags(b []byte, flags []*bool) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		idx := int(num) - 1
		if idx < 0 || idx >= len(flags) {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if typ != protowire.VarintType {
			return malformed(fmt.Errorf("flag %d: wire type %d", num, typ))
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		if protowire.DecodeBool(v) {
			*flags[idx] = true
		}
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
