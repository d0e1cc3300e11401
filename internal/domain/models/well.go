package models

import "time"

// Well identifies a producing well inside a project.
type Well struct {
	ID        string    `bson:"_id" json:"id"`
	ProjectID string    `bson:"project_id" json:"project_id"`
	Name      string    `bson:"name" json:"name"`
	Field     string    `bson:"field,omitempty" json:"field,omitempty"`
	Reservoir string    `bson:"reservoir,omitempty" json:"reservoir,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
