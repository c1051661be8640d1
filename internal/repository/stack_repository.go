package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StackRepository struct {
	db *gorm.DB
}

func NewStackRepository(db *gorm.DB) *StackRepository {
	return &StackRepository{db: db}
}

func (r *StackRepository) Create(ctx context.Context, stack *domain.Stack) error {
	return GetDB(ctx, r.db).Create(stack).Error
}

func (r *StackRepository) Update(ctx context.Context, stack *domain.Stack) error {
	return GetDB(ctx, r.db).Save(stack).Error
}

func (r *StackRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Stack, error) {
	var stack domain.Stack
	query := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Where("id = ?", id))
	if err := query.First(&stack).Error; err != nil {
		return nil, err
	}
	return &stack, nil
}

// GetByIDForUpdate loads the stack and locks its row until the surrounding transaction ends.
// Sale checks lock the stack so concurrent sales of the same stack serialize.
func (r *StackRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Stack, error) {
	var stack domain.Stack
	query := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
	if err := query.First(&stack).Error; err != nil {
		return nil, err
	}
	return &stack, nil
}

// List returns the org's stacks ordered by name
func (r *StackRepository) List(ctx context.Context) ([]domain.Stack, error) {
	var stacks []domain.Stack
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db)).Order("name ASC").Find(&stacks).Error
	return stacks, err
}

// ListByIDs returns the stacks with the given ids keyed by id
func (r *StackRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Stack, error) {
	out := make(map[uuid.UUID]domain.Stack, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var stacks []domain.Stack
	if err := ApplyOrgFilter(ctx, GetDB(ctx, r.db)).Where("id IN ?", ids).Find(&stacks).Error; err != nil {
		return nil, err
	}
	for _, s := range stacks {
		out[s.ID] = s
	}
	return out, nil
}

// Delete removes the stack and detaches its transactions and tickets. Call inside RunInTx.
func (r *StackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := ApplyOrgFilter(ctx, db.Model(&domain.Transaction{})).
		Where("stack_id = ?", id).Update("stack_id", nil).Error; err != nil {
		return err
	}
	if err := ApplyOrgFilter(ctx, db.Model(&domain.Ticket{})).
		Where("stack_id = ?", id).Update("stack_id", nil).Error; err != nil {
		return err
	}
	result := ApplyOrgFilter(ctx, db.Where("id = ?", id)).Delete(&domain.Stack{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
