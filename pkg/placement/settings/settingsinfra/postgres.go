package settingsinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
	"github.com/jmoiron/sqlx"
)

// PostgresProvider reads the single system_settings row.
type PostgresProvider struct {
	db *sqlx.DB
}

func NewPostgresProvider(db *sqlx.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) Current(ctx context.Context) (settings.Settings, error) {
	var s settings.Settings
	query := `
		SELECT email_enabled, sms_enabled, push_enabled,
		       notify_application_status, notify_new_drive, notify_account
		FROM system_settings WHERE id = 1`
	if err := p.db.GetContext(ctx, &s, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Defaults(), nil
		}
		return settings.Settings{}, placement.ErrStoreFailure(err).WithDetail("table", "system_settings")
	}
	return s, nil
}
