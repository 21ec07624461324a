// Package users layers typed user operations over the generic document
// store, so the rest of the system never touches raw user JSON.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
)

type Store struct {
	docs docstore.Store
}

func New(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) GetByID(ctx context.Context, userID string) (model.User, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionUsers, userID)
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return model.User{}, fmt.Errorf("parse user %s: %w", userID, err)
	}
	return user, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (model.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return model.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range users {
		if strings.ToLower(user.Email) == email {
			return user, nil
		}
	}
	return model.User{}, docstore.ErrNotFound
}

func (s *Store) GetByPatientID(ctx context.Context, patientID string) (model.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, user := range users {
		if user.PatientID == patientID {
			return user, nil
		}
	}
	return model.User{}, docstore.ErrNotFound
}

func (s *Store) List(ctx context.Context) ([]model.User, error) {
	docs, err := s.docs.List(ctx, docstore.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		var user model.User
		if err := json.Unmarshal(doc, &user); err != nil {
			return nil, fmt.Errorf("parse user record: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) Save(ctx context.Context, user model.User) error {
	if user.UserID == "" {
		return fmt.Errorf("user record missing user_id")
	}
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.UserID, err)
	}
	return s.docs.Put(ctx, docstore.CollectionUsers, user.UserID, doc)
}

// NextIdentifiers allocates the next sequential user and patient identifiers,
// zero-padded the way the dashboards expect (u001 / 0001).
func (s *Store) NextIdentifiers(ctx context.Context) (userID, patientID string, err error) {
	users, err := s.List(ctx)
	if err != nil {
		return "", "", err
	}
	next := len(users) + 1
	return fmt.Sprintf("u%03d", next), fmt.Sprintf("%04d", next), nil
}

// SetReportReady flips the report-ready flag for the user owning patientID
// and returns the updated record.
func (s *Store) SetReportReady(ctx context.Context, patientID string, ready bool) (model.User, error) {
	user, err := s.GetByPatientID(ctx, patientID)
	if err != nil {
		return model.User{}, err
	}
	user.IsReport = ready
	if err := s.Save(ctx, user); err != nil {
		return model.User{}, err
	}
	return user, nil
}
