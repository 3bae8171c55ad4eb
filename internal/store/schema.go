package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the service's tables if they do not exist. The DDL is
// idempotent so every instance can run it at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS merchants (
            id BIGSERIAL PRIMARY KEY,
            merchant_id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS staff (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL REFERENCES merchants(id),
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS payloads (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL REFERENCES merchants(id),
            payload_type TEXT NOT NULL,
            raw_payload JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS disputes (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL REFERENCES merchants(id),
            staff_id BIGINT REFERENCES staff(id),
            custom_id TEXT NOT NULL UNIQUE,
            dispute_id TEXT NOT NULL,
            payment_id TEXT NOT NULL,
            gateway TEXT NOT NULL,
            ip_address TEXT,
            amount BIGINT NOT NULL,
            currency TEXT NOT NULL,
            reason_code TEXT,
            reason TEXT,
            dispute_status TEXT NOT NULL,
            event TEXT NOT NULL,
            state TEXT NOT NULL,
            status_updated_at TIMESTAMPTZ NOT NULL,
            due_date TIMESTAMPTZ NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (dispute_id, merchant_id)
        );
        CREATE TABLE IF NOT EXISTS dispute_history (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL REFERENCES merchants(id),
            dispute_id BIGINT NOT NULL REFERENCES disputes(id),
            updated_status TEXT NOT NULL,
            updated_event TEXT NOT NULL,
            status_update_at TIMESTAMPTZ NOT NULL,
            payload_id BIGINT REFERENCES payloads(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS dispute_logs (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL REFERENCES merchants(id),
            log TEXT NOT NULL,
            status TEXT NOT NULL,
            gateway TEXT,
            ip_address TEXT,
            event_type TEXT,
            dispute_id TEXT,
            payment_id TEXT,
            status_updated_at TIMESTAMPTZ,
            due_date TIMESTAMPTZ,
            payload_id BIGINT REFERENCES payloads(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS staff_assignment_states (
            id BIGSERIAL PRIMARY KEY,
            merchant_id BIGINT NOT NULL UNIQUE REFERENCES merchants(id),
            last_staff_assigned BIGINT NOT NULL REFERENCES staff(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            recipient_id BIGINT NOT NULL,
            recipient_type TEXT NOT NULL,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            dispute_id BIGINT REFERENCES disputes(id),
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMPTZ,
            channel TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_disputes_merchant ON disputes (merchant_id);
        CREATE INDEX IF NOT EXISTS idx_dispute_history_dispute ON dispute_history (dispute_id);
        CREATE INDEX IF NOT EXISTS idx_dispute_logs_merchant ON dispute_logs (merchant_id);
        CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, recipient_type);
    `)
	return err
}
