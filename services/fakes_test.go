package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plateful/plateful-server/database/models"
	"github.com/plateful/plateful-server/database/repositories"
	"github.com/plateful/plateful-server/worker"
)

// fakeNoteRepo mirrors the repository contract in memory, including the
// generation fencing the summary patch relies on.
type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*models.Note
	seq   int
	order map[string]int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{
		notes: make(map[string]*models.Note),
		order: make(map[string]int),
	}
}

func (f *fakeNoteRepo) Create(_ context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now
	note.Generation = 1
	f.seq++
	f.order[note.ID] = f.seq
	f.notes[note.ID] = cloneNote(note)
	return nil
}

func (f *fakeNoteRepo) GetByID(_ context.Context, id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "note", ID: id}
	}
	return cloneNote(note), nil
}

func (f *fakeNoteRepo) GetAllByUserID(_ context.Context, userID string) ([]*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Note
	for _, note := range f.notes {
		if note.UserID == userID {
			out = append(out, cloneNote(note))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return f.order[out[i].ID] > f.order[out[j].ID]
	})
	return out, nil
}

func (f *fakeNoteRepo) Update(_ context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.notes[note.ID]
	if !ok {
		return &repositories.NotFoundError{Entity: "note", ID: note.ID}
	}
	note.UpdatedAt = time.Now()
	stored.Title = note.Title
	stored.Content = note.Content
	stored.UpdatedAt = note.UpdatedAt
	// Bumped from the stored row, as the database does, so concurrent
	// editors holding the same stale read still mint distinct generations.
	stored.Generation++
	note.Generation = stored.Generation
	f.seq++
	f.order[note.ID] = f.seq
	return nil
}

func (f *fakeNoteRepo) UpdateSummary(_ context.Context, id string, generation int64, summary string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	note, ok := f.notes[id]
	if !ok || note.Generation != generation {
		return false, nil
	}
	note.Summary = &summary
	return true, nil
}

func (f *fakeNoteRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[id]; !ok {
		return &repositories.NotFoundError{Entity: "note", ID: id}
	}
	delete(f.notes, id)
	return nil
}

func cloneNote(note *models.Note) *models.Note {
	clone := *note
	if note.Summary != nil {
		s := *note.Summary
		clone.Summary = &s
	}
	return &clone
}

// fakeRecipeRepo mirrors the recipe repository, including fenced parse
// patches and substring search.
type fakeRecipeRepo struct {
	mu      sync.Mutex
	recipes map[string]*models.Recipe
}

func newFakeRecipeRepo() *fakeRecipeRepo {
	return &fakeRecipeRepo{recipes: make(map[string]*models.Recipe)}
}

func (f *fakeRecipeRepo) Create(_ context.Context, recipe *models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.recipes[recipe.ID] = cloneRecipe(recipe)
	return nil
}

func (f *fakeRecipeRepo) GetByID(_ context.Context, id string) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "recipe", ID: id}
	}
	return cloneRecipe(recipe), nil
}

func (f *fakeRecipeRepo) GetAllByUserID(_ context.Context, userID string) ([]*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Recipe
	for _, recipe := range f.recipes {
		if recipe.UserID == userID {
			out = append(out, cloneRecipe(recipe))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRecipeRepo) Search(_ context.Context, userID, search string) ([]*models.Recipe, error) {
	all, _ := f.GetAllByUserID(nil, userID)
	if search == "" {
		return all, nil
	}
	needle := strings.ToLower(search)
	var out []*models.Recipe
	for _, recipe := range all {
		haystack := strings.ToLower(recipe.Title + " " + recipe.Description + " " + strings.Join(recipe.Tags, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (f *fakeRecipeRepo) ApplyParseResult(_ context.Context, id string, generation int64, parsed *models.ParsedRecipe) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipe, ok := f.recipes[id]
	if !ok || recipe.Generation != generation {
		return false, nil
	}
	recipe.Title = parsed.Title
	recipe.Description = parsed.Description
	recipe.Ingredients = parsed.Ingredients
	recipe.Instructions = parsed.Instructions
	recipe.PrepTime = parsed.PrepTime
	recipe.CookTime = parsed.CookTime
	recipe.TotalTime = parsed.TotalTime
	recipe.Servings = parsed.Servings
	recipe.Cuisine = parsed.Cuisine
	recipe.Category = parsed.Category
	recipe.Tags = parsed.Tags
	recipe.ParseStatus = models.ParseSucceeded
	recipe.ParseError = ""
	recipe.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRecipeRepo) ApplyParseFailure(_ context.Context, id string, generation int64, detail string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipe, ok := f.recipes[id]
	if !ok || recipe.Generation != generation {
		return false, nil
	}
	recipe.Ingredients = []models.Ingredient{}
	recipe.Instructions = []string{}
	recipe.ParseStatus = models.ParseFailed
	recipe.ParseError = detail
	recipe.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRecipeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recipes[id]; !ok {
		return &repositories.NotFoundError{Entity: "recipe", ID: id}
	}
	delete(f.recipes, id)
	return nil
}

func (f *fakeRecipeRepo) bumpGeneration(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if recipe, ok := f.recipes[id]; ok {
		recipe.Generation++
	}
}

func cloneRecipe(recipe *models.Recipe) *models.Recipe {
	clone := *recipe
	clone.Ingredients = append([]models.Ingredient(nil), recipe.Ingredients...)
	clone.Instructions = append([]string(nil), recipe.Instructions...)
	clone.Tags = append([]string(nil), recipe.Tags...)
	if clone.Ingredients == nil {
		clone.Ingredients = []models.Ingredient{}
	}
	if clone.Instructions == nil {
		clone.Instructions = []string{}
	}
	return &clone
}

// fakeCompletion scripts the external completion service.
type fakeCompletion struct {
	parse     func(ctx context.Context, text string) (*models.ParsedRecipe, error)
	summarize func(ctx context.Context, title, content string) (string, error)
}

func (f *fakeCompletion) ParseRecipe(ctx context.Context, text string) (*models.ParsedRecipe, error) {
	return f.parse(ctx, text)
}

func (f *fakeCompletion) SummarizeNote(ctx context.Context, title, content string) (string, error) {
	return f.summarize(ctx, title, content)
}

// manualQueue holds submitted jobs until the test runs them, so tests can
// observe the state between "mutation returned" and "job completed".
type manualQueue struct {
	mu     sync.Mutex
	jobs   []worker.Job
	reject bool
}

func (q *manualQueue) Submit(job worker.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (q *manualQueue) runAll(ctx context.Context) {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	for _, job := range jobs {
		_ = job.Run(ctx)
	}
}

func (q *manualQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// recordingNotifier captures published events in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyNote(eventType string, note *models.Note) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType+":"+note.ID)
}

func (n *recordingNotifier) NotifyRecipe(eventType string, recipe *models.Recipe) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType+":"+recipe.ID)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
