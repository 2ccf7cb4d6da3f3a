package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/plateful/plateful-server/database/models"
	"github.com/uptrace/bun"
)

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	GetAllByUserID(ctx context.Context, userID string) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	UpdateSummary(ctx context.Context, id string, generation int64, summary string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type noteRepository struct {
	*BaseRepository
}

func NewNoteRepository(db *bun.DB) NoteRepository {
	return &noteRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *noteRepository) Create(ctx context.Context, note *models.Note) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now
	note.Generation = 1

	if _, err := r.db.NewInsert().Model(note).Exec(ctx); err != nil {
		return &RepositoryError{Operation: "create", Entity: "note", Err: err}
	}
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	note := new(models.Note)
	err := r.db.NewSelect().Model(note).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "note", ID: id}
	}
	if err != nil {
		return nil, &RepositoryError{Operation: "get", Entity: "note", Err: err}
	}
	return note, nil
}

func (r *noteRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.Note, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var notes []*models.Note
	err := r.db.NewSelect().
		Model(&notes).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "list", Entity: "note", Err: err}
	}
	return notes, nil
}

// Update patches title/content, bumps the generation, and touches updated_at.
// The bump happens in the database so concurrent edits mint distinct
// generations even when both read the same revision; the new value is scanned
// back into the model. A pending summary job scheduled against the old
// generation will have its patch discarded.
func (r *noteRepository) Update(ctx context.Context, note *models.Note) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	note.UpdatedAt = time.Now()

	res, err := r.db.NewUpdate().
		Model(note).
		Set("title = ?", note.Title).
		Set("content = ?", note.Content).
		Set("updated_at = ?", note.UpdatedAt).
		Set("generation = generation + 1").
		WherePK().
		Returning("generation").
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "update", Entity: "note", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "note", ID: note.ID}
	}
	return nil
}

// UpdateSummary applies a summarizer job's result. The patch is fenced by the
// generation the job was scheduled against; it reports false when the row was
// edited or deleted in the meantime.
func (r *noteRepository) UpdateSummary(ctx context.Context, id string, generation int64, summary string) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model((*models.Note)(nil)).
		Set("summary = ?", summary).
		Where("id = ?", id).
		Where("generation = ?", generation).
		Exec(ctx)
	if err != nil {
		return false, &RepositoryError{Operation: "update_summary", Entity: "note", Err: err}
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *noteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.Note)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "delete", Entity: "note", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "note", ID: id}
	}
	return nil
}
