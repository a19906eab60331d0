package service

import (
	"github.com/jun/gophtodo/internal/model"
	"github.com/jun/gophtodo/internal/store"
)

// Family describes one item family: its table layout, how a creation
// request becomes a stored item, and (through U) the update payload.
// U must marshal to the schema's mutable attributes and nothing else.
type Family[T, C, U any] struct {
	// Name is the singular family name used in logs, e.g. "todo".
	Name   string
	Schema store.Schema
	// Build assembles a new item from the client request and the
	// server-owned fields. Family defaults are applied here.
	Build func(req C, itemID, userID, createdAt string) T
}

// TodoFamily is the todo family stored in table.
func TodoFamily(table string) Family[model.Todo, model.CreateTodoRequest, model.UpdateTodoRequest] {
	return Family[model.Todo, model.CreateTodoRequest, model.UpdateTodoRequest]{
		Name: "todo",
		Schema: store.Schema{
			Table:        table,
			PartitionKey: "userId",
			SortKey:      "todoId",
			Mutable:      []string{"name", "dueDate", "done"},
		},
		Build: func(req model.CreateTodoRequest, itemID, userID, createdAt string) model.Todo {
			return model.Todo{
				TodoID:    itemID,
				UserID:    userID,
				Name:      req.Name,
				DueDate:   req.DueDate,
				Done:      false,
				CreatedAt: createdAt,
			}
		},
	}
}

// NoteFamily is the note family stored in table.
func NoteFamily(table string) Family[model.Note, model.CreateNoteRequest, model.UpdateNoteRequest] {
	return Family[model.Note, model.CreateNoteRequest, model.UpdateNoteRequest]{
		Name: "note",
		Schema: store.Schema{
			Table:        table,
			PartitionKey: "userId",
			SortKey:      "noteId",
			Mutable:      []string{"name", "description"},
		},
		Build: func(req model.CreateNoteRequest, itemID, userID, createdAt string) model.Note {
			return model.Note{
				NoteID:      itemID,
				UserID:      userID,
				Name:        req.Name,
				Description: req.Description,
				CreatedAt:   createdAt,
			}
		},
	}
}
