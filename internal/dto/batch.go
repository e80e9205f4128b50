package dto

// Batch operation types accepted by the batch endpoint.
const (
	BatchOpDelete = "delete"
	BatchOpUpdate = "update"
)

// BatchRequest is the wire payload of the batch operations endpoint.
type BatchRequest struct {
	Operations []BatchOperation `json:"operations"`
}

// BatchOperation is one instruction in a batch. ID is left untyped so a
// malformed value fails that item alone instead of the whole request decode.
type BatchOperation struct {
	Type string            `json:"type"`
	ID   interface{}       `json:"id"`
	Data *BatchPaperUpdate `json:"data,omitempty"`
}

// BatchPaperUpdate is the partial update payload of a batch update item.
// Nil fields are left untouched.
type BatchPaperUpdate struct {
	Title   *string `json:"title,omitempty"`
	Authors *string `json:"authors,omitempty"`
	DOI     *string `json:"doi,omitempty"`
	Status  *string `json:"status,omitempty"`
	Tags    *string `json:"tags,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// BatchResult reports the outcome of a single batch operation. The result
// list always matches the input list in length and order.
type BatchResult struct {
	ID      interface{} `json:"id"`
	Success bool        `json:"success"`
	Type    string      `json:"type,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
