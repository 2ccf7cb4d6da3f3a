package services

import (
	"context"
	"errors"
	"strings"

	"github.com/plateful/plateful-server/ai"
	"github.com/plateful/plateful-server/database/models"
	"github.com/plateful/plateful-server/database/repositories"
	"github.com/plateful/plateful-server/logger"
	"github.com/plateful/plateful-server/worker"
	"github.com/plateful/plateful-server/ws"
)

const jobKindNoteSummary = "note_summary"

// NoteService is the write gateway and read surface for notes. Mutations
// require a resolved subject; queries degrade to empty results without one.
type NoteService struct {
	notes    repositories.NoteRepository
	ai       ai.CompletionService
	jobs     JobQueue
	notifier ChangeNotifier
}

func NewNoteService(notes repositories.NoteRepository, completion ai.CompletionService, jobs JobQueue, notifier ChangeNotifier) *NoteService {
	return &NoteService{
		notes:    notes,
		ai:       completion,
		jobs:     jobs,
		notifier: notifier,
	}
}

// Create inserts a note and, when wantSummary is set, schedules one
// summarization job. The note is returned before the summary exists.
func (s *NoteService) Create(ctx context.Context, subject, title, content string, wantSummary bool) (*models.Note, error) {
	if subject == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(title) == "" {
		return nil, validationError("title must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content must not be empty")
	}

	note := &models.Note{
		UserID:  subject,
		Title:   title,
		Content: content,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.notifier.NotifyNote(ws.EventNoteCreated, note)

	if wantSummary {
		s.scheduleSummary(note.ID, note.Generation, title, content)
	}
	return note, nil
}

// Update patches title and content unconditionally and re-schedules the
// summarizer when asked. The generation bump fences out any summary job still
// in flight for the previous content.
func (s *NoteService) Update(ctx context.Context, subject, id, title, content string, wantSummary bool) (*models.Note, error) {
	if subject == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(title) == "" {
		return nil, validationError("title must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content must not be empty")
	}

	note, err := s.ownedNote(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	note.Title = title
	note.Content = content
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, mapRepositoryError(err)
	}

	s.notifier.NotifyNote(ws.EventNoteUpdated, note)

	if wantSummary {
		s.scheduleSummary(note.ID, note.Generation, title, content)
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, subject, id string) error {
	if subject == "" {
		return ErrUnauthenticated
	}

	note, err := s.ownedNote(ctx, subject, id)
	if err != nil {
		return err
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		return mapRepositoryError(err)
	}

	s.notifier.NotifyNote(ws.EventNoteDeleted, note)
	return nil
}

// List returns the caller's notes, most recently updated first. An
// unresolved identity yields an empty list, not an error.
func (s *NoteService) List(ctx context.Context, subject string) ([]*models.Note, error) {
	if subject == "" {
		return []*models.Note{}, nil
	}
	return s.notes.GetAllByUserID(ctx, subject)
}

func (s *NoteService) Get(ctx context.Context, subject, id string) (*models.Note, error) {
	if subject == "" {
		return nil, ErrNotFound
	}
	return s.ownedNote(ctx, subject, id)
}

func (s *NoteService) ownedNote(ctx context.Context, subject, id string) (*models.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if note.UserID != subject {
		return nil, ErrNotFound
	}
	return note, nil
}

// scheduleSummary submits the one-shot summarizer job. Summary failures are
// never surfaced to the mutating caller; the job log is the only trace and
// the note simply keeps its previous summary.
func (s *NoteService) scheduleSummary(id string, generation int64, title, content string) {
	submitted := s.jobs.Submit(worker.Job{
		Kind:       jobKindNoteSummary,
		RecordID:   id,
		Generation: generation,
		Run: func(ctx context.Context) error {
			summary, err := s.ai.SummarizeNote(ctx, title, content)
			if err != nil {
				return err
			}

			applied, err := s.notes.UpdateSummary(ctx, id, generation, summary)
			if err != nil {
				return err
			}
			if !applied {
				// Edited or deleted since scheduling; stale result dropped.
				return nil
			}

			note, err := s.notes.GetByID(ctx, id)
			if err != nil {
				return nil
			}
			s.notifier.NotifyNote(ws.EventNoteUpdated, note)
			return nil
		},
	})
	if !submitted {
		logger.LogError("Summary job rejected", errors.New("worker queue unavailable"))
	}
}

func mapRepositoryError(err error) error {
	var notFound *repositories.NotFoundError
	if errors.As(err, &notFound) {
		return ErrNotFound
	}
	return err
}
