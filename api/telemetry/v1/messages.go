// Package telemetryv1 holds the TelemetryService RPC messages, their protobuf wire encoding
// and the gRPC service descriptor shared by the ingestion server and its clients.
package telemetryv1

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/wire"
)

// MaxBatchSize bounds BatchReportTelemetryRequest.Reports.
const MaxBatchSize = 100

// ReportTelemetryRequest carries one run's report. Wire: report = 1.
type ReportTelemetryRequest struct {
	Report *domain.Report
}

// ReportTelemetryResponse is the ingestion outcome of one report.
// Wire: accepted = 1, duplicate = 2, reasons = 3 (repeated).
type ReportTelemetryResponse struct {
	Accepted  bool
	Duplicate bool
	Reasons   []string
}

// BatchReportTelemetryRequest carries several reports. Wire: reports = 1 (repeated).
type BatchReportTelemetryRequest struct {
	Reports []*domain.Report
}

// BatchReportTelemetryResponse holds one result per request report, in order. Wire: results = 1 (repeated).
type BatchReportTelemetryResponse struct {
	Results []*ReportTelemetryResponse
}

// Message is implemented by every TelemetryService message.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(b []byte) error
}

func (m *ReportTelemetryRequest) MarshalWire() ([]byte, error) {
	if m.Report == nil {
		return []byte{}, nil
	}
	rep, err := wire.MarshalReport(m.Report)
	if err != nil {
		return nil, err
	}
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(b, rep), nil
}

func (m *ReportTelemetryRequest) UnmarshalWire(b []byte) error {
	*m = ReportTelemetryRequest{}
	return eachField(b, func(num protowire.Number, v []byte) error {
		if num != 1 {
			return nil
		}
		rep, err := wire.UnmarshalReport(v)
		if err != nil {
			return err
		}
		m.Report = rep
		return nil
	})
}

func (m *ReportTelemetryResponse) MarshalWire() ([]byte, error) {
	return m.appendWire([]byte{}), nil
}

func (m *ReportTelemetryResponse) appendWire(b []byte) []byte {
	if m.Accepted {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if m.Duplicate {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	for _, r := range m.Reasons {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r)
	}
	return b
}

func (m *ReportTelemetryResponse) UnmarshalWire(b []byte) error {
	*m = ReportTelemetryResponse{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case (num == 1 || num == 2) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			if num == 1 {
				m.Accepted = v != 0
			} else {
				m.Duplicate = v != 0
			}
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			m.Reasons = append(m.Reasons, v)
			b = b[n:]
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

func (m *BatchReportTelemetryRequest) MarshalWire() ([]byte, error) {
	b := []byte{}
	for _, r := range m.Reports {
		if r == nil {
			r = &domain.Report{}
		}
		rep, err := wire.MarshalReport(r)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, rep)
	}
	return b, nil
}

func (m *BatchReportTelemetryRequest) UnmarshalWire(b []byte) error {
	*m = BatchReportTelemetryRequest{}
	return eachField(b, func(num protowire.Number, v []byte) error {
		if num != 1 {
			return nil
		}
		rep, err := wire.UnmarshalReport(v)
		if err != nil {
			return err
		}
		m.Reports = append(m.Reports, rep)
		return nil
	})
}

func (m *BatchReportTelemetryResponse) MarshalWire() ([]byte, error) {
	b := []byte{}
	for _, r := range m.Results {
		if r == nil {
			r = &ReportTelemetryResponse{}
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, r.appendWire(nil))
	}
	return b, nil
}

func (m *BatchReportTelemetryResponse) UnmarshalWire(b []byte) error {
	*m = BatchReportTelemetryResponse{}
	return eachField(b, func(num protowire.Number, v []byte) error {
		if num != 1 {
			return nil
		}
		r := &ReportTelemetryResponse{}
		if err := r.UnmarshalWire(v); err != nil {
			return err
		}
		m.Results = append(m.Results, r)
		return nil
	})
}

// eachField calls fn for every length-delimited field in b and skips all others.
func eachField(b []byte, fn func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		if err := fn(num, v); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", wire.ErrMalformed, err)
}
