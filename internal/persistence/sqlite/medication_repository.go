package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
)

// MedicationRepository implements persistence.MedicationRepository on SQLite.
type MedicationRepository struct {
	store *Store
}

// NewMedicationRepository wires a medication repository onto the store.
func NewMedicationRepository(store *Store) *MedicationRepository {
	return &MedicationRepository{store: store}
}

// CreateMedication inserts a catalog entry.
func (r *MedicationRepository) CreateMedication(ctx context.Context, medication persistence.Medication) error {
	if medication.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if medication.CreatedAt.IsZero() {
		medication.CreatedAt = now
	}
	if medication.UpdatedAt.IsZero() {
		medication.UpdatedAt = now
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO medications (id, name, active_principle, manufacturer, category, strength, form, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		medication.ID,
		medication.Name,
		medication.ActivePrinciple,
		nullableString(medication.Manufacturer),
		nullableString(medication.Category),
		nullableString(medication.Strength),
		nullableString(medication.Form),
		formatTimestamp(medication.CreatedAt),
		formatTimestamp(medication.UpdatedAt),
	)
	return mapError(err)
}

// GetMedication retrieves a catalog entry by ID.
func (r *MedicationRepository) GetMedication(ctx context.Context, id string) (persistence.Medication, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, name, active_principle, manufacturer, category, strength, form, created_at, updated_at
		FROM medications WHERE id = ?`, id)

	medication, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Medication{}, persistence.ErrNotFound
		}
		return persistence.Medication{}, mapError(err)
	}
	return medication, nil
}

// SearchMedications returns catalog entries whose name or active principle
// contains the query, ordered by name, capped at limit.
func (r *MedicationRepository) SearchMedications(ctx context.Context, query string, limit int) ([]persistence.Medication, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, active_principle, manufacturer, category, strength, form, created_at, updated_at
		FROM medications
		WHERE name LIKE ? OR active_principle LIKE ?
		ORDER BY name, id
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var medications []persistence.Medication
	for rows.Next() {
		medication, err := scanMedication(rows)
		if err != nil {
			return nil, mapError(err)
		}
		medications = append(medications, medication)
	}
	return medications, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (persistence.Medication, error) {
	var medication persistence.Medication
	var manufacturer, category, strength, form sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&medication.ID,
		&medication.Name,
		&medication.ActivePrinciple,
		&manufacturer,
		&category,
		&strength,
		&form,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Medication{}, err
	}

	medication.Manufacturer = stringPtr(manufacturer)
	medication.Category = stringPtr(category)
	medication.Strength = stringPtr(strength)
	medication.Form = stringPtr(form)

	var err error
	if medication.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Medication{}, err
	}
	if medication.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Medication{}, err
	}
	return medication, nil
}
