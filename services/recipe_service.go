package services

import (
	"context"
	"strings"

	"github.com/plateful/plateful-server/ai"
	"github.com/plateful/plateful-server/database/models"
	"github.com/plateful/plateful-server/database/repositories"
	"github.com/plateful/plateful-server/worker"
	"github.com/plateful/plateful-server/ws"
)

const jobKindRecipeParse = "recipe_parse"

// RecipeService owns the asynchronous parse pipeline: create a pending
// placeholder, schedule exactly one parse job, and reconcile the job's
// outcome back into the record for subscribers to observe.
type RecipeService struct {
	recipes  repositories.RecipeRepository
	ai       ai.CompletionService
	jobs     JobQueue
	notifier ChangeNotifier
}

func NewRecipeService(recipes repositories.RecipeRepository, completion ai.CompletionService, jobs JobQueue, notifier ChangeNotifier) *RecipeService {
	return &RecipeService{
		recipes:  recipes,
		ai:       completion,
		jobs:     jobs,
		notifier: notifier,
	}
}

// Create inserts the pending placeholder and schedules the parse job. The
// returned recipe is the placeholder; clients subscribe and wait for the
// parse_status transition.
func (s *RecipeService) Create(ctx context.Context, subject, recipeText string) (*models.Recipe, error) {
	if subject == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(recipeText) == "" {
		return nil, validationError("recipe text must not be empty")
	}

	recipe := &models.Recipe{
		UserID:       subject,
		OriginalText: recipeText,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, err
	}

	s.notifier.NotifyRecipe(ws.EventRecipeCreated, recipe)
	s.scheduleParse(ctx, recipe.ID, recipe.Generation, recipeText)

	return recipe, nil
}

func (s *RecipeService) Delete(ctx context.Context, subject, id string) error {
	if subject == "" {
		return ErrUnauthenticated
	}

	recipe, err := s.ownedRecipe(ctx, subject, id)
	if err != nil {
		return err
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		return mapRepositoryError(err)
	}

	s.notifier.NotifyRecipe(ws.EventRecipeDeleted, recipe)
	return nil
}

// List returns the caller's recipes; an unresolved identity yields an empty
// list.
func (s *RecipeService) List(ctx context.Context, subject string) ([]*models.Recipe, error) {
	if subject == "" {
		return []*models.Recipe{}, nil
	}
	return s.recipes.GetAllByUserID(ctx, subject)
}

func (s *RecipeService) Get(ctx context.Context, subject, id string) (*models.Recipe, error) {
	if subject == "" {
		return nil, ErrNotFound
	}
	return s.ownedRecipe(ctx, subject, id)
}

// Search matches a case-insensitive substring against title, description and
// tags, scoped to the caller.
func (s *RecipeService) Search(ctx context.Context, subject, query string) ([]*models.Recipe, error) {
	if subject == "" {
		return []*models.Recipe{}, nil
	}
	return s.recipes.Search(ctx, subject, query)
}

func (s *RecipeService) ownedRecipe(ctx context.Context, subject, id string) (*models.Recipe, error) {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if recipe.UserID != subject {
		return nil, ErrNotFound
	}
	return recipe, nil
}

// scheduleParse submits the one-shot parse job. Every failure mode of the
// pipeline, including a queue that cannot accept the job, ends as a failed
// patch on the record rather than an error to the caller.
func (s *RecipeService) scheduleParse(ctx context.Context, id string, generation int64, recipeText string) {
	submitted := s.jobs.Submit(worker.Job{
		Kind:       jobKindRecipeParse,
		RecordID:   id,
		Generation: generation,
		Run: func(ctx context.Context) error {
			return s.runParse(ctx, id, generation, recipeText)
		},
	})
	if !submitted {
		s.recordParseFailure(ctx, id, generation, "background parser is unavailable")
	}
}

// runParse is the background parser: one completion call, strict validation,
// one fenced patch. Terminal either way; no retry.
func (s *RecipeService) runParse(ctx context.Context, id string, generation int64, recipeText string) error {
	parsed, err := s.ai.ParseRecipe(ctx, recipeText)
	if err != nil {
		s.recordParseFailure(ctx, id, generation, err.Error())
		return err
	}

	applied, err := s.recipes.ApplyParseResult(ctx, id, generation, parsed)
	if err != nil {
		return err
	}
	if applied {
		s.notifyCurrent(ctx, id)
	}
	return nil
}

func (s *RecipeService) recordParseFailure(ctx context.Context, id string, generation int64, detail string) {
	applied, err := s.recipes.ApplyParseFailure(ctx, id, generation, detail)
	if err != nil || !applied {
		return
	}
	s.notifyCurrent(ctx, id)
}

func (s *RecipeService) notifyCurrent(ctx context.Context, id string) {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return
	}
	s.notifier.NotifyRecipe(ws.EventRecipeUpdated, recipe)
}
