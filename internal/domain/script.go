package domain

import "time"

// Script is a stored screenplay or scene write-up used to ground chat turns
type Script struct {
	ID                string    `json:"id" bson:"id"`
	Title             string    `json:"title" bson:"title"`
	Description       string    `json:"description,omitempty" bson:"description,omitempty"`
	Content           string    `json:"content" bson:"content"`
	SceneDescriptions []string  `json:"scene_descriptions,omitempty" bson:"scene_descriptions,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

// CreateScriptRequest is the request to create a script
type CreateScriptRequest struct {
	Title             string   `json:"title" binding:"required"`
	Description       string   `json:"description,omitempty"`
	Content           string   `json:"content" binding:"required"`
	SceneDescriptions []string `json:"scene_descriptions,omitempty"`
}

// UpdateScriptRequest is the request to update a script
type UpdateScriptRequest struct {
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Content           string   `json:"content,omitempty"`
	SceneDescriptions []string `json:"scene_descriptions,omitempty"`
}

// ScriptListResponse is the response for listing scripts
type ScriptListResponse struct {
	Scripts  []*Script `json:"scripts"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// Stats represents system statistics
type Stats struct {
	TotalScripts int    `json:"total_scripts"`
	StoreDriver  string `json:"store_driver"`
}

// Status is the payload of GET /api/status
type Status struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Version  string `json:"version"`
}
