package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/plateful/plateful-server/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	GetByID(ctx context.Context, id string) (*models.Recipe, error)
	GetAllByUserID(ctx context.Context, userID string) ([]*models.Recipe, error)
	Search(ctx context.Context, userID, search string) ([]*models.Recipe, error)
	ApplyParseResult(ctx context.Context, id string, generation int64, parsed *models.ParsedRecipe) (bool, error)
	ApplyParseFailure(ctx context.Context, id string, generation int64, detail string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type recipeRepository struct {
	*BaseRepository
}

func NewRecipeRepository(db *bun.DB) RecipeRepository {
	return &recipeRepository{BaseRepository: NewBaseRepository(db)}
}

// Create inserts the placeholder row the parse job will later patch. The
// caller only provides user id and original text; everything else starts in
// the pending state with empty lists.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	if recipe.Ingredients == nil {
		recipe.Ingredients = []models.Ingredient{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	recipe.ParseStatus = models.ParsePending
	recipe.Generation = 1

	if _, err := r.db.NewInsert().Model(recipe).Exec(ctx); err != nil {
		return &RepositoryError{Operation: "create", Entity: "recipe", Err: err}
	}
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	recipe := new(models.Recipe)
	err := r.db.NewSelect().Model(recipe).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "recipe", ID: id}
	}
	if err != nil {
		return nil, &RepositoryError{Operation: "get", Entity: "recipe", Err: err}
	}
	normalize(recipe)
	return recipe, nil
}

func (r *recipeRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.Recipe, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var recipes []*models.Recipe
	err := r.db.NewSelect().
		Model(&recipes).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "list", Entity: "recipe", Err: err}
	}
	for _, recipe := range recipes {
		normalize(recipe)
	}
	return recipes, nil
}

func (r *recipeRepository) Search(ctx context.Context, userID, search string) ([]*models.Recipe, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var recipes []*models.Recipe
	query := r.db.NewSelect().
		Model(&recipes).
		Where("user_id = ?", userID)

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(`
			LOWER(title) LIKE LOWER(?) OR
			LOWER(description) LIKE LOWER(?) OR
			LOWER(array_to_string(tags, ' ')) LIKE LOWER(?)`,
			pattern, pattern, pattern)
	}

	err := query.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "search", Entity: "recipe", Err: err}
	}
	for _, recipe := range recipes {
		normalize(recipe)
	}
	return recipes, nil
}

// ApplyParseResult persists a successful parse. Fenced by generation: the
// patch matches zero rows when the record was deleted or re-parsed since the
// job was scheduled, and the stale result is discarded.
func (r *recipeRepository) ApplyParseResult(ctx context.Context, id string, generation int64, parsed *models.ParsedRecipe) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	ingredients, err := json.Marshal(parsed.Ingredients)
	if err != nil {
		return false, &RepositoryError{Operation: "apply_parse_result", Entity: "recipe", Err: err}
	}
	tags := parsed.Tags
	if tags == nil {
		tags = []string{}
	}

	res, err := r.db.NewUpdate().
		Model((*models.Recipe)(nil)).
		Set("title = ?", parsed.Title).
		Set("description = ?", parsed.Description).
		Set("ingredients = ?", string(ingredients)).
		Set("instructions = ?", pgdialect.Array(parsed.Instructions)).
		Set("prep_time = ?", parsed.PrepTime).
		Set("cook_time = ?", parsed.CookTime).
		Set("total_time = ?", parsed.TotalTime).
		Set("servings = ?", parsed.Servings).
		Set("cuisine = ?", parsed.Cuisine).
		Set("category = ?", parsed.Category).
		Set("tags = ?", pgdialect.Array(tags)).
		Set("parse_status = ?", models.ParseSucceeded).
		Set("parse_error = ''").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("generation = ?", generation).
		Exec(ctx)
	if err != nil {
		return false, &RepositoryError{Operation: "apply_parse_result", Entity: "recipe", Err: err}
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// ApplyParseFailure records a failed parse with its human-readable detail,
// clearing the structured fields. Fenced the same way as ApplyParseResult.
func (r *recipeRepository) ApplyParseFailure(ctx context.Context, id string, generation int64, detail string) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model((*models.Recipe)(nil)).
		Set("ingredients = '[]'").
		Set("instructions = ?", pgdialect.Array([]string{})).
		Set("parse_status = ?", models.ParseFailed).
		Set("parse_error = ?", detail).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("generation = ?", generation).
		Exec(ctx)
	if err != nil {
		return false, &RepositoryError{Operation: "apply_parse_failure", Entity: "recipe", Err: err}
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *recipeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.Recipe)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "delete", Entity: "recipe", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "recipe", ID: id}
	}
	return nil
}

// normalize keeps the always-present list invariant across the wire even if
// the column round-trips as NULL.
func normalize(recipe *models.Recipe) {
	if recipe.Ingredients == nil {
		recipe.Ingredients = []models.Ingredient{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
}
