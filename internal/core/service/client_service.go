package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

type ClientService struct {
	store  port.Store
	logger port.LoggerPort
}

func NewClientService(store port.Store, logger port.LoggerPort) *ClientService {
	return &ClientService{store: store, logger: logger}
}

func normalizeClient(d domain.ClientDetails) domain.ClientDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Document = strings.TrimSpace(d.Document)
	d.Phone = strings.TrimSpace(d.Phone)
	return d
}

// checkUnique fails when another client already uses the email or document.
func checkUnique(ctx context.Context, tx port.StoreTx, id uuid.UUID, details domain.ClientDetails) error {
	byEmail, err := tx.FindClientByEmail(ctx, details.Email)
	if err != nil {
		return err
	}
	if byEmail != nil && byEmail.ID != id {
		return domain.ErrDuplicateClient
	}

	byDocument, err := tx.FindClientByDocument(ctx, details.Document)
	if err != nil {
		return err
	}
	if byDocument != nil && byDocument.ID != id {
		return domain.ErrDuplicateClient
	}
	return nil
}

func (s *ClientService) Create(ctx context.Context, details domain.ClientDetails) (*domain.Client, error) {
	details = normalizeClient(details)
	if err := details.Validate(); err != nil {
		return nil, err
	}

	client := domain.Client{
		ID:        uuid.New(),
		Name:      details.Name,
		Email:     details.Email,
		Document:  details.Document,
		Phone:     details.Phone,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		if err := checkUnique(ctx, tx, client.ID, details); err != nil {
			return err
		}
		return tx.InsertClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client created", port.Fields{"client_id": client.ID})
	return &client, nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, details domain.ClientDetails) (*domain.Client, error) {
	details = normalizeClient(details)
	if err := details.Validate(); err != nil {
		return nil, err
	}

	var updated domain.Client
	err := s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		current, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrClientNotFound
		}
		if err := checkUnique(ctx, tx, id, details); err != nil {
			return err
		}

		updated = *current
		updated.Name = details.Name
		updated.Email = details.Email
		updated.Document = details.Document
		updated.Phone = details.Phone
		return tx.UpdateClient(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		client, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrClientNotFound
		}

		refs, err := tx.CountClientReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.ErrClientInUse
		}
		return tx.DeleteClient(ctx, id)
	})
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, search string) ([]domain.Client, error) {
	return s.store.ListClients(ctx, strings.TrimSpace(search))
}
