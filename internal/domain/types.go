package domain

import "time"

// InteractionType classifies what happened during an initiative.
type InteractionType string

const (
	InteractionConversation InteractionType = "conversation"
	InteractionPresentation InteractionType = "presentation"
	InteractionAcceptance   InteractionType = "acceptance"
)

// InteractionTypes lists the accepted interaction types in display order.
var InteractionTypes = []InteractionType{
	InteractionConversation,
	InteractionPresentation,
	InteractionAcceptance,
}

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	for _, known := range InteractionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Person struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

// Location is the coordinate/name triple produced by location resolution.
// The three fields are always set together.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"locationName"`
}

type Initiative struct {
	ID               string            `json:"id"`
	LocationName     string            `json:"locationName"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Evangelists      []Person          `json:"evangelists"`
	Evangelized      []Person          `json:"evangelized"`
	Testimony        string            `json:"testimony"`
	InteractionTypes []InteractionType `json:"interactionTypes"`
	University       string            `json:"university"`
	EvangelismTools  []string          `json:"evangelismTools"`
	PhotoURL         string            `json:"photoUrl"`
	PhotoHint        string            `json:"photoHint"`
	Date             string            `json:"date"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Task is one challenge users can pick on the tasks page.
type Task struct {
	ID          string `json:"id" yaml:"id"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}
