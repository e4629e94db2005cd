package service

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/semanadefe/semanadefe/internal/domain"
)

const (
	minLocationName = 3
	minPersonName   = 2
	minTestimony    = 20
	maxTestimony    = 500
	minUniversity   = 2
)

const (
	msgLocation     = "Selecione uma localização no mapa."
	msgPersonName   = "O nome deve ter pelo menos 2 caracteres."
	msgEvangelists  = "Adicione pelo menos um participante."
	msgEvangelized  = "Adicione pelo menos uma pessoa evangelizada."
	msgTestimonyMin = "O testemunho deve ter pelo menos 20 caracteres."
	msgTestimonyMax = "O testemunho não pode exceder 500 caracteres."
	msgInteractions = "Você precisa selecionar pelo menos um tipo de interação."
	msgInteraction  = "Tipo de interação inválido."
	msgUniversity   = "Por favor, insira o nome da universidade."
	msgTools        = "Você precisa selecionar pelo menos uma ferramenta."
)

// SubmissionInput is the raw payload of a submission. Coordinates are
// pointers so that a missing value is told apart from zero.
type SubmissionInput struct {
	LocationName     string          `json:"locationName"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	Evangelists      []domain.Person `json:"evangelists"`
	Evangelized      []domain.Person `json:"evangelized"`
	Testimony        string          `json:"testimony"`
	InteractionTypes []string        `json:"interactionTypes"`
	University       string          `json:"university"`
	EvangelismTools  []string        `json:"evangelismTools"`

	Photo *Photo `json:"-"`
}

// Validate checks every rule and reports all violations at once. On success
// it returns the initiative fields copied verbatim from the input.
func Validate(in SubmissionInput) (*domain.Initiative, error) {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if runeLen(in.LocationName) < minLocationName {
		add("locationName", msgLocation)
	}
	if !validCoord(in.Latitude, 90) {
		add("latitude", msgLocation)
	}
	if !validCoord(in.Longitude, 180) {
		add("longitude", msgLocation)
	}

	checkPeople := func(field string, people []domain.Person, emptyMsg string) {
		if len(people) == 0 {
			add(field, emptyMsg)
			return
		}
		for i, p := range people {
			if runeLen(p.Name) < minPersonName {
				add(fmt.Sprintf("%s[%d].name", field, i), msgPersonName)
			}
		}
	}
	checkPeople("evangelists", in.Evangelists, msgEvangelists)
	checkPeople("evangelized", in.Evangelized, msgEvangelized)

	// The minimum ignores padding; the maximum bounds what is stored.
	switch {
	case runeLen(in.Testimony) < minTestimony:
		add("testimony", msgTestimonyMin)
	case utf8.RuneCountInString(in.Testimony) > maxTestimony:
		add("testimony", msgTestimonyMax)
	}

	interactions := make([]domain.InteractionType, 0, len(in.InteractionTypes))
	if len(in.InteractionTypes) == 0 {
		add("interactionTypes", msgInteractions)
	}
	for i, raw := range in.InteractionTypes {
		t := domain.InteractionType(raw)
		if !t.Valid() {
			add(fmt.Sprintf("interactionTypes[%d]", i), msgInteraction)
			continue
		}
		interactions = append(interactions, t)
	}

	if runeLen(in.University) < minUniversity {
		add("university", msgUniversity)
	}
	if !anyNonBlank(in.EvangelismTools) {
		add("evangelismTools", msgTools)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	return &domain.Initiative{
		LocationName:     in.LocationName,
		Latitude:         *in.Latitude,
		Longitude:        *in.Longitude,
		Evangelists:      in.Evangelists,
		Evangelized:      in.Evangelized,
		Testimony:        in.Testimony,
		InteractionTypes: interactions,
		University:       in.University,
		EvangelismTools:  in.EvangelismTools,
	}, nil
}

// runeLen counts characters after trimming surrounding whitespace, so
// padding never satisfies a minimum length.
func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func validCoord(v *float64, limit float64) bool {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return false
	}
	return *v >= -limit && *v <= limit
}

func anyNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
