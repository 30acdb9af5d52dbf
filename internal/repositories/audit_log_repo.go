package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relink-dev/relink/internal/database"
	"github.com/relink-dev/relink/internal/models"
)

// AuditLogRepository defines the append-only audit sink
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// AuditLogRepositoryImpl implements AuditLogRepository
type AuditLogRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) AuditLogRepository {
	return &AuditLogRepositoryImpl{pool: db.Pool}
}

func scanAuditLogRow(scanner rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	err := scanner.Scan(
		&log.ID,
		&log.EventType,
		&log.ActorID,
		&log.TargetID,
		&log.ResourceType,
		&log.ResourceID,
		&log.Action,
		&log.Success,
		&log.FailureReason,
		&log.IPAddress,
		&log.UserAgent,
		&log.Metadata,
		&log.CreatedAt,
	)

	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return log, nil
}

// Create appends an audit record. Audit rows are never updated or deleted.
func (r *AuditLogRepositoryImpl) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	query := `
		INSERT INTO audit_logs
			(id, event_type, actor_id, target_id, resource_type, resource_id, action,
			 success, failure_reason, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, event_type, actor_id, target_id, resource_type, resource_id, action,
			success, failure_reason, ip_address, user_agent, metadata, created_at
	`

	created, err := scanAuditLogRow(r.pool.QueryRow(ctx, query,
		uuid.New(),
		log.EventType,
		log.ActorID,
		log.TargetID,
		log.ResourceType,
		log.ResourceID,
		log.Action,
		log.Success,
		log.FailureReason,
		log.IPAddress,
		log.UserAgent,
		log.Metadata,
		time.Now(),
	))

	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return created, nil
}

// ListByTarget retrieves audit records for a target user, newest first
func (r *AuditLogRepositoryImpl) ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, actor_id, target_id, resource_type, resource_id, action,
			success, failure_reason, ip_address, user_agent, metadata, created_at
		FROM audit_logs
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, targetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}
