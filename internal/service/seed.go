package service

import (
	"context"
	"fmt"

	"github.com/semanadefe/semanadefe/internal/domain"
)

// SampleInitiatives returns demo records for an empty deployment.
func SampleInitiatives() []*domain.Initiative {
	return []*domain.Initiative{
		{
			LocationName:     "Praia de Copacabana, Rio de Janeiro, Brasil",
			Latitude:         -22.9714,
			Longitude:        -43.1823,
			Evangelists:      []domain.Person{{Name: "Carlos"}, {Name: "Fernanda"}},
			Evangelized:      []domain.Person{{Name: "John"}},
			Testimony:        "Tivemos uma conversa maravilhosa sobre fé com um turista no calçadão. Ele estava muito aberto e curioso.",
			InteractionTypes: []domain.InteractionType{domain.InteractionConversation, domain.InteractionPresentation},
			University:       "UFRJ",
			EvangelismTools:  []string{"conecta"},
			Date:             "2024-07-20",
			PhotoURL:         "https://picsum.photos/seed/evrio1/600/400",
			PhotoHint:        "praia sol",
		},
		{
			LocationName:     "Praça da Liberdade, Belo Horizonte, Minas Gerais, Brasil",
			Latitude:         -19.9328,
			Longitude:        -43.9352,
			Evangelists:      []domain.Person{{Name: "Lucas"}},
			Evangelized:      []domain.Person{{Name: "Mariana"}, {Name: "Pedro"}},
			Testimony:        "Um grupo de estudantes parou para ouvir e uma pessoa aceitou a Cristo ali mesmo! Foi uma grande alegria.",
			InteractionTypes: []domain.InteractionType{domain.InteractionConversation, domain.InteractionPresentation, domain.InteractionAcceptance},
			University:       "UFMG",
			EvangelismTools:  []string{"4-leis"},
			Date:             "2024-07-21",
			PhotoURL:         "https://picsum.photos/seed/evbh1/600/400",
			PhotoHint:        "parque cidade",
		},
		{
			LocationName:     "Convento da Penha, Vila Velha, Espírito Santo, Brasil",
			Latitude:         -20.3297,
			Longitude:        -40.2870,
			Evangelists:      []domain.Person{{Name: "Ana"}, {Name: "Tiago"}},
			Evangelized:      []domain.Person{{Name: "Sofia"}},
			Testimony:        "No topo do convento, com uma vista incrível, compartilhamos o evangelho. A pessoa ficou muito emocionada.",
			InteractionTypes: []domain.InteractionType{domain.InteractionConversation},
			University:       "UFES",
			EvangelismTools:  []string{"perspectiva"},
			Date:             "2024-07-22",
			PhotoURL:         "https://picsum.photos/seed/eves1/600/400",
			PhotoHint:        "vista montanha",
		},
	}
}

// Seed writes the sample initiatives straight to the store, keeping their
// historical dates.
func (s *SubmissionService) Seed(ctx context.Context) ([]*domain.Initiative, error) {
	samples := SampleInitiatives()
	created := make([]*domain.Initiative, 0, len(samples))
	for _, rec := range samples {
		c, err := s.store.Create(ctx, rec)
		if err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", rec.LocationName, err)
		}
		if s.indexer != nil {
			s.indexer.Index(c)
		}
		created = append(created, c)
	}
	s.logger.Info("sample initiatives seeded", "count", len(created))
	return created, nil
}
