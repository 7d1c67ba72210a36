// Package expense implements ownership-checked CRUD over expense records.
package expense

import (
	"errors"
	"fmt"
	"math"
	"time"

	"spendlog/internal/models"
	"spendlog/internal/storage"
)

// MaxDescriptionLen caps the free-text description field.
const MaxDescriptionLen = 200

// Sentinel errors returned by the expense service.
var (
	// ErrNotFound is returned for unknown expense IDs.
	ErrNotFound = errors.New("expense: not found")
	// ErrForbidden is returned when the requester does not own the expense.
	ErrForbidden = errors.New("expense: forbidden")
	// ErrInvalidAmount is returned for non-finite amounts.
	ErrInvalidAmount = errors.New("expense: invalid amount")
	// ErrDescriptionTooLong is returned when the description exceeds 200 characters.
	ErrDescriptionTooLong = errors.New("expense: description too long")
)

// Service enforces ownership and aggregates over the storage layer.
type Service struct {
	db *storage.DB
}

// NewService creates an expense service backed by db.
func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

func validate(amount float64, description string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	if len(description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Add creates a new expense owned by ownerID, dated now.
func (s *Service) Add(ownerID int64, amount float64, description string) (*models.Expense, error) {
	if err := validate(amount, description); err != nil {
		return nil, err
	}
	exp, err := s.db.CreateExpense(ownerID, amount, description, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return exp, nil
}

// Get retrieves an expense, verifying the requester owns it.
func (s *Service) Get(requesterID, id int64) (*models.Expense, error) {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if exp.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return exp, nil
}

// Update mutates the amount and description of an owned expense.
func (s *Service) Update(requesterID, id int64, amount float64, description string) error {
	if err := validate(amount, description); err != nil {
		return err
	}
	if _, err := s.Get(requesterID, id); err != nil {
		return err
	}
	if err := s.db.UpdateExpense(id, amount, description); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// Delete removes an owned expense.
func (s *Service) Delete(requesterID, id int64) error {
	if _, err := s.Get(requesterID, id); err != nil {
		return err
	}
	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// List returns all expenses owned by ownerID in insertion order.
func (s *Service) List(ownerID int64) ([]models.Expense, error) {
	return s.db.ListExpensesByOwner(ownerID)
}

// TotalFor returns the sum of the owner's expense amounts, 0 when none exist.
func (s *Service) TotalFor(ownerID int64) (float64, error) {
	return s.db.TotalByOwner(ownerID)
}
