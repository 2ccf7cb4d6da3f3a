package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/plateful/plateful-server/database/models"
	"github.com/plateful/plateful-server/database/repositories"
	"github.com/plateful/plateful-server/middleware"
	"github.com/plateful/plateful-server/services"
	"github.com/plateful/plateful-server/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headerResolver trusts the X-Test-Subject header, standing in for the
// identity provider.
type headerResolver struct{}

func (headerResolver) Resolve(_ context.Context, token string) (string, error) {
	return token, nil
}

// inlineQueue runs jobs synchronously so handler tests observe terminal
// parse states.
type inlineQueue struct{}

func (inlineQueue) Submit(job worker.Job) bool {
	_ = job.Run(context.Background())
	return true
}

type nopNotifier struct{}

func (nopNotifier) NotifyNote(string, *models.Note)     {}
func (nopNotifier) NotifyRecipe(string, *models.Recipe) {}

type memNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*models.Note
}

func (m *memNoteRepo) Create(_ context.Context, note *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note.ID = uuid.NewString()
	now := time.Now()
	note.CreatedAt, note.UpdatedAt, note.Generation = now, now, 1
	m.notes[note.ID] = note
	return nil
}

func (m *memNoteRepo) GetByID(_ context.Context, id string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if note, ok := m.notes[id]; ok {
		clone := *note
		return &clone, nil
	}
	return nil, &repositories.NotFoundError{Entity: "note", ID: id}
}

func (m *memNoteRepo) GetAllByUserID(_ context.Context, userID string) ([]*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Note{}
	for _, note := range m.notes {
		if note.UserID == userID {
			clone := *note
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memNoteRepo) Update(_ context.Context, note *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.notes[note.ID]
	if !ok {
		return &repositories.NotFoundError{Entity: "note", ID: note.ID}
	}
	stored.Title, stored.Content = note.Title, note.Content
	stored.UpdatedAt = time.Now()
	stored.Generation++
	note.UpdatedAt = stored.UpdatedAt
	note.Generation = stored.Generation
	return nil
}

func (m *memNoteRepo) UpdateSummary(_ context.Context, id string, generation int64, summary string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok || note.Generation != generation {
		return false, nil
	}
	note.Summary = &summary
	return true, nil
}

func (m *memNoteRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return &repositories.NotFoundError{Entity: "note", ID: id}
	}
	delete(m.notes, id)
	return nil
}

type memRecipeRepo struct {
	mu      sync.Mutex
	recipes map[string]*models.Recipe
}

func (m *memRecipeRepo) Create(_ context.Context, recipe *models.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe.ID = uuid.NewString()
	recipe.Ingredients = []models.Ingredient{}
	recipe.Instructions = []string{}
	now := time.Now()
	recipe.CreatedAt, recipe.UpdatedAt = now, now
	recipe.ParseStatus = models.ParsePending
	recipe.Generation = 1
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *memRecipeRepo) GetByID(_ context.Context, id string) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recipe, ok := m.recipes[id]; ok {
		clone := *recipe
		return &clone, nil
	}
	return nil, &repositories.NotFoundError{Entity: "recipe", ID: id}
}

func (m *memRecipeRepo) GetAllByUserID(_ context.Context, userID string) ([]*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Recipe{}
	for _, recipe := range m.recipes {
		if recipe.UserID == userID {
			clone := *recipe
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memRecipeRepo) Search(ctx context.Context, userID, _ string) ([]*models.Recipe, error) {
	return m.GetAllByUserID(ctx, userID)
}

func (m *memRecipeRepo) ApplyParseResult(_ context.Context, id string, generation int64, parsed *models.ParsedRecipe) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok || recipe.Generation != generation {
		return false, nil
	}
	recipe.Title = parsed.Title
	recipe.Ingredients = parsed.Ingredients
	recipe.Instructions = parsed.Instructions
	recipe.ParseStatus = models.ParseSucceeded
	return true, nil
}

func (m *memRecipeRepo) ApplyParseFailure(_ context.Context, id string, generation int64, detail string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok || recipe.Generation != generation {
		return false, nil
	}
	recipe.ParseStatus = models.ParseFailed
	recipe.ParseError = detail
	return true, nil
}

func (m *memRecipeRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[id]; !ok {
		return &repositories.NotFoundError{Entity: "recipe", ID: id}
	}
	delete(m.recipes, id)
	return nil
}

type scriptedCompletion struct{}

func (scriptedCompletion) ParseRecipe(_ context.Context, _ string) (*models.ParsedRecipe, error) {
	return &models.ParsedRecipe{
		Title:        "Parsed Title",
		Ingredients:  []models.Ingredient{{Item: "thing", Amount: "1"}},
		Instructions: []string{"Do the thing."},
	}, nil
}

func (scriptedCompletion) SummarizeNote(_ context.Context, _, _ string) (string, error) {
	return "a summary", nil
}

func newTestApp() *fiber.App {
	noteRepo := &memNoteRepo{notes: map[string]*models.Note{}}
	recipeRepo := &memRecipeRepo{recipes: map[string]*models.Recipe{}}

	noteService := services.NewNoteService(noteRepo, scriptedCompletion{}, inlineQueue{}, nopNotifier{})
	recipeService := services.NewRecipeService(recipeRepo, scriptedCompletion{}, inlineQueue{}, nopNotifier{})
	webApp := NewWebApp(noteService, recipeService, nil)

	app := fiber.New()
	app.Use(middleware.ResolveIdentity(headerResolver{}))

	api := app.Group("/api")
	notes := api.Group("/notes")
	notes.Get("/", webApp.HandleListNotes)
	notes.Post("/", webApp.HandleCreateNote)
	notes.Get("/:id", webApp.HandleGetNote)
	notes.Put("/:id", webApp.HandleUpdateNote)
	notes.Delete("/:id", webApp.HandleDeleteNote)

	recipes := api.Group("/recipes")
	recipes.Get("/", webApp.HandleListRecipes)
	recipes.Post("/", webApp.HandleCreateRecipe)
	recipes.Get("/search", webApp.HandleSearchRecipes)
	recipes.Get("/:id", webApp.HandleGetRecipe)
	recipes.Delete("/:id", webApp.HandleDeleteRecipe)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, subject string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+subject)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &envelope)
	}
	return resp.StatusCode, envelope
}

func TestCreateNote_Unauthenticated(t *testing.T) {
	app := newTestApp()

	status, envelope := doJSON(t, app, "POST", "/api/notes/", "", fiber.Map{
		"title": "t", "content": "c",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestNoteLifecycleOverHTTP(t *testing.T) {
	app := newTestApp()

	status, envelope := doJSON(t, app, "POST", "/api/notes/", "alice", fiber.Map{
		"title": "Groceries", "content": "milk, eggs", "want_summary": true,
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := envelope["data"].(map[string]any)
	id := data["id"].(string)
	require.NotEmpty(t, id)

	status, envelope = doJSON(t, app, "GET", "/api/notes/"+id, "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	data = envelope["data"].(map[string]any)
	assert.Equal(t, "Groceries", data["title"])
	assert.Equal(t, "a summary", data["summary"])

	// Another subject sees an opaque 404, same as a bogus id.
	status, _ = doJSON(t, app, "GET", "/api/notes/"+id, "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = doJSON(t, app, "GET", "/api/notes/does-not-exist", "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", "/api/notes/"+id, "alice", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestListNotes_AnonymousGetsEmptyList(t *testing.T) {
	app := newTestApp()

	status, envelope := doJSON(t, app, "GET", "/api/notes/", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, envelope["data"])
}

func TestCreateRecipeOverHTTP(t *testing.T) {
	app := newTestApp()

	status, envelope := doJSON(t, app, "POST", "/api/recipes/", "alice", fiber.Map{
		"recipe_text": "Pasta\n400g spaghetti",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := envelope["data"].(map[string]any)
	id := data["id"].(string)
	assert.Equal(t, "Pasta\n400g spaghetti", data["original_text"])

	// The inline queue already ran the parse job.
	status, envelope = doJSON(t, app, "GET", "/api/recipes/"+id, "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	data = envelope["data"].(map[string]any)
	assert.Equal(t, string(models.ParseSucceeded), data["parse_status"])
	assert.Equal(t, "Parsed Title", data["title"])
}

func TestCreateRecipe_EmptyText(t *testing.T) {
	app := newTestApp()

	status, envelope := doJSON(t, app, "POST", "/api/recipes/", "alice", fiber.Map{
		"recipe_text": "",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "BAD_REQUEST", errObj["code"])
}
