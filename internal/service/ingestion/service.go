package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/observability/telemetry"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
	"github.com/lumix-energy/dmrv-engine/internal/service/audit"
)

const defaultBatchSize = 1000

// timestamp layouts accepted for raw readings, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Service validates and stores raw inverter readings. Processing is batched:
// each batch commits in its own transaction together with one
// reading_ingested audit row per reading, so a failure never leaks partial
// rows from the failing batch while batches already committed stay committed.
type Service struct {
	inverters ports.InverterRepository
	readings  ports.ReadingRepository
	recorder  ports.AuditRecorder
	batchSize int
	log       *zap.Logger
}

func NewService(inverters ports.InverterRepository, readings ports.ReadingRepository, recorder ports.AuditRecorder, batchSize int, log *zap.Logger) ports.IngestionService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		inverters: inverters,
		readings:  readings,
		recorder:  recorder,
		batchSize: batchSize,
		log:       log,
	}
}

// RegisterInverter stores a new inverter and audits its creation.
func (s *Service) RegisterInverter(ctx context.Context, inv *domain.Inverter) error {
	if inv.CapacityKW <= 0 {
		return &domain.ValidationError{Field: "capacity_kw", Value: fmt.Sprintf("%v", inv.CapacityKW), Reason: "must be positive"}
	}
	inv.CreatedAt = time.Now().UTC()
	if err := s.inverters.Save(ctx, inv); err != nil {
		return fmt.Errorf("save inverter: %w", err)
	}

	id := inv.ID
	if err := s.recorder.Record(ctx, domain.AuditActionInverterCreated, domain.EntityTypeInverter, &id, inv); err != nil {
		s.log.Warn("Inverter stored but audit entry failed", zap.Uint("inverter_id", inv.ID), zap.Error(err))
	}
	return nil
}

// Ingest processes a bounded slice of raw rows. Returns how many readings
// were persisted; on error, all batches before the failing one remain
// committed.
func (s *Service) Ingest(ctx context.Context, rows []domain.RawReading) (int, error) {
	persisted := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.processBatch(ctx, rows[start:end]); err != nil {
			return persisted, err
		}
		persisted += end - start
	}
	return persisted, nil
}

// IngestStream consumes an unbounded row source, committing every batchSize
// rows to keep memory and transaction sizes bounded. Cancellation aborts the
// in-flight batch without committing it; batches already committed remain.
func (s *Service) IngestStream(ctx context.Context, rows <-chan domain.RawReading) (int, error) {
	persisted := 0
	batch := make([]domain.RawReading, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.processBatch(ctx, batch); err != nil {
			return err
		}
		persisted += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return persisted, ctx.Err()
		case row, ok := <-rows:
			if !ok {
				return persisted, flush()
			}
			batch = append(batch, row)
			if len(batch) >= s.batchSize {
				if err := flush(); err != nil {
					return persisted, err
				}
			}
		}
	}
}

// processBatch validates every row, then commits readings and audit shadows
// in one transaction. Any invalid row fails the whole batch.
func (s *Service) processBatch(ctx context.Context, rows []domain.RawReading) error {
	start := time.Now()
	batchID := uuid.New().String()

	seen := make(map[uint]bool)
	readings := make([]domain.Reading, 0, len(rows))
	audits := make([]domain.AuditLog, 0, len(rows))
	now := time.Now().UTC()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !seen[row.InverterID] {
			inv, err := s.inverters.FindByID(ctx, row.InverterID)
			if err != nil {
				return fmt.Errorf("look up inverter %d: %w", row.InverterID, err)
			}
			if inv == nil {
				telemetry.IngestBatchesTotal.WithLabelValues("reference_error").Inc()
				return &domain.ReferenceError{EntityType: domain.EntityTypeInverter, EntityID: row.InverterID}
			}
			seen[row.InverterID] = true
		}

		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
			return &domain.ValidationError{Field: "timestamp", Value: row.Timestamp, Reason: "unparsable timestamp"}
		}

		kwh, err := row.KWh.Float64()
		if err != nil {
			telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
			return &domain.ValidationError{Field: "kwh", Value: row.KWh.String(), Reason: "not a number"}
		}
		if kwh < 0 {
			telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
			return &domain.ValidationError{Field: "kwh", Value: row.KWh.String(), Reason: "must be non-negative"}
		}

		readings = append(readings, domain.Reading{
			InverterID: row.InverterID,
			Timestamp:  ts,
			KWh:        kwh,
			CreatedAt:  now,
		})

		hash, err := audit.Fingerprint(row)
		if err != nil {
			return fmt.Errorf("fingerprint reading: %w", err)
		}
		// Entity id stays nil: reading identity is assigned at batch commit.
		audits = append(audits, domain.AuditLog{
			PayloadHash: hash,
			Action:      domain.AuditActionReadingIngested,
			EntityType:  domain.EntityTypeReading,
			CreatedAt:   now,
		})
	}

	if err := s.readings.SaveBatch(ctx, readings, audits); err != nil {
		telemetry.IngestBatchesTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("commit batch %s: %w", batchID, err)
	}

	telemetry.IngestBatchesTotal.WithLabelValues("ok").Inc()
	telemetry.ReadingsIngestedTotal.Add(float64(len(readings)))
	telemetry.IngestBatchLatency.Observe(time.Since(start).Seconds())

	s.log.Info("Ingestion batch committed",
		zap.String("batch_id", batchID),
		zap.Int("rows", len(readings)),
	)
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}
