// internal/domain/models/universitygroup.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UniversityKey identifies a university group. Two programs belong to the
// same group only when both fields match exactly.
type UniversityKey struct {
	University string `bson:"universidad"`
	City       string `bson:"ciudad"`
}

// GroupMember is the projection of a program carried inside a GroupView.
type GroupMember struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"programa,omitempty"`
	ResearchLine string             `bson:"linea_investigacion,omitempty"`
	Stats        Stats              `bson:"stats,omitempty"`
}

// GroupView is one university group as produced by the grouping aggregation.
type GroupView struct {
	Key     UniversityKey `bson:"_id"`
	Members []GroupMember `bson:"programas"`
}

// UniversityExplanation is the stored explanation for one university.
type UniversityExplanation struct {
	Description string `json:"descripcion"`
	LastUpdated string `json:"last_updated"`
	Stats       Stats  `json:"stats"`
}
