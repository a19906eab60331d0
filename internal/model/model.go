package model

// Todo is a to-do item owned by one user.
type Todo struct {
	TodoID        string `json:"todoId" dynamodbav:"todoId"`
	UserID        string `json:"userId" dynamodbav:"userId"`
	Name          string `json:"name" dynamodbav:"name"`
	DueDate       string `json:"dueDate" dynamodbav:"dueDate"`
	Done          bool   `json:"done" dynamodbav:"done"`
	CreatedAt     string `json:"createdAt" dynamodbav:"createdAt"`
	AttachmentURL string `json:"attachmentUrl,omitempty" dynamodbav:"attachmentUrl,omitempty"`
}

// CreateTodoRequest is the client payload for POST /todos.
type CreateTodoRequest struct {
	Name    string `json:"name" validate:"required"`
	DueDate string `json:"dueDate"`
}

// UpdateTodoRequest carries exactly the mutable fields of a Todo.
type UpdateTodoRequest struct {
	Name    string `json:"name" dynamodbav:"name" validate:"required"`
	DueDate string `json:"dueDate" dynamodbav:"dueDate"`
	Done    bool   `json:"done" dynamodbav:"done"`
}

// Note is a free-text note owned by one user.
type Note struct {
	NoteID        string `json:"noteId" dynamodbav:"noteId"`
	UserID        string `json:"userId" dynamodbav:"userId"`
	Name          string `json:"name" dynamodbav:"name"`
	Description   string `json:"description" dynamodbav:"description"`
	CreatedAt     string `json:"createdAt" dynamodbav:"createdAt"`
	AttachmentURL string `json:"attachmentUrl,omitempty" dynamodbav:"attachmentUrl,omitempty"`
}

// CreateNoteRequest is the client payload for POST /notes.
type CreateNoteRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateNoteRequest carries exactly the mutable fields of a Note.
type UpdateNoteRequest struct {
	Name        string `json:"name" dynamodbav:"name" validate:"required"`
	Description string `json:"description" dynamodbav:"description"`
}
