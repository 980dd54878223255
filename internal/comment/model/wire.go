package model

// Request and response bodies of the comment store HTTP surface.

type ListResponse struct {
	Comments   []Comment `json:"comments"`
	TotalPages int       `json:"total_pages"`
	Version    int64     `json:"version"`
}

type ProbeRequest struct {
	BookID   string `json:"book_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Since    *int64 `json:"since,omitempty"`
}

type ProbeResponse struct {
	HasNew bool `json:"has_new"`
}

type AddRequest struct {
	BookID   string  `json:"book_id"`
	Username string  `json:"username"`
	Text     string  `json:"text"`
	ParentID *string `json:"parent_id"`
}

type EditRequest struct {
	CommentID string `json:"comment_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
}

type DeleteRequest struct {
	CommentID string `json:"comment_id"`
	Username  string `json:"username"`
}

type VoteRequest struct {
	CommentID string `json:"comment_id"`
	Value     int    `json:"value"`
}

type BanRequest struct {
	AdminUsername  string `json:"adminUsername"`
	TargetUsername string `json:"targetUsername"`
}

// Result is the {success, message} envelope of mutating calls.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Success bool `json:"success"`
}
