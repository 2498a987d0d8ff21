package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/devpulse/internal/model"
)

// Document is the whole persisted state. Backends store it as one JSON
// object with four top-level arrays.
type Document struct {
	Projects  []model.Project         `json:"projects"`
	Tasks     []model.Task            `json:"tasks"`
	Users     []model.User            `json:"users"`
	Analytics []model.AnalyticsRecord `json:"analytics"`
}

// NewDocument returns an empty document whose arrays encode as [] not null.
func NewDocument() *Document {
	return &Document{
		Projects:  []model.Project{},
		Tasks:     []model.Task{},
		Users:     []model.User{},
		Analytics: []model.AnalyticsRecord{},
	}
}

// Encode renders the document the way it is stored: indented JSON.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("docstore: encoding document: %w", err)
	}
	return data, nil
}

// Decode parses a stored document. Empty input yields an empty document and
// missing arrays are normalized to empty slices.
func Decode(data []byte) (*Document, error) {
	doc := NewDocument()
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("docstore: decoding document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// Clone deep-copies the document through its JSON form, so no slice or
// nested list is shared with the original.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("docstore: cloning document: %w", err)
	}
	return Decode(data)
}

func (d *Document) normalize() {
	if d.Projects == nil {
		d.Projects = []model.Project{}
	}
	if d.Tasks == nil {
		d.Tasks = []model.Task{}
	}
	if d.Users == nil {
		d.Users = []model.User{}
	}
	if d.Analytics == nil {
		d.Analytics = []model.AnalyticsRecord{}
	}
}
