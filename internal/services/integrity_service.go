package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/BradenHooton/autentica/internal/metrics"
)

// SignatureAuditor re-verifies every stored row signature of one table
type SignatureAuditor interface {
	VerifySignatures(ctx context.Context) ([]string, error)
}

// IntegrityReport maps table name to the ids of rows whose signature does not match
type IntegrityReport map[string][]string

// Clean reports whether no table had a mismatch
func (r IntegrityReport) Clean() bool {
	for _, ids := range r {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// IntegrityService detects rows modified outside the application
type IntegrityService struct {
	auditors map[string]SignatureAuditor
	logger   *slog.Logger
}

func NewIntegrityService(auditors map[string]SignatureAuditor, log *slog.Logger) *IntegrityService {
	return &IntegrityService{auditors: auditors, logger: log}
}

// VerifyAll audits every table. A failing table does not stop the others.
func (s *IntegrityService) VerifyAll(ctx context.Context) (IntegrityReport, error) {
	tables := make([]string, 0, len(s.auditors))
	for table := range s.auditors {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	report := IntegrityReport{}
	var errs []error

	for _, table := range tables {
		ids, err := s.auditors[table].VerifySignatures(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}

		report[table] = ids
		if len(ids) > 0 {
			metrics.IntegrityFailuresTotal.WithLabelValues(table).Add(float64(len(ids)))
			s.logger.ErrorContext(ctx, "row signature mismatch",
				slog.String("table", table),
				slog.Int("rows", len(ids)),
			)
		}
	}

	return report, errors.Join(errs...)
}
