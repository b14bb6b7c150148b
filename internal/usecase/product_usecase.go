package usecase

import (
	"context"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	ws "farmlink/internal/infrastructure/websocket"
	"farmlink/pkg/errors"
	"farmlink/pkg/logger"
)

type ProductUseCase struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	wsManager   *ws.Manager
}

func NewProductUseCase(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	wsManager *ws.Manager,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		userRepo:    userRepo,
		wsManager:   wsManager,
	}
}

type ProductInput struct {
	Name     string
	Category string
	Price    float64
	Unit     string
	Quantity int
}

// CreateProduct lists a new product and announces it to every connected
// session so marketplace views refresh live.
func (uc *ProductUseCase) CreateProduct(ctx context.Context, userID string, input ProductInput) (*entity.Product, error) {
	farmer, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if farmer.Role != entity.RoleFarmer {
		return nil, errors.Forbidden("Only farmers can list products", nil)
	}

	product := &entity.Product{
		FarmerID:  userID,
		Name:      input.Name,
		Category:  input.Category,
		Price:     input.Price,
		Unit:      input.Unit,
		Quantity:  input.Quantity,
		Available: input.Quantity > 0,
	}
	if err := uc.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product %s listed by farmer %s", product.ID, userID)
	uc.wsManager.BroadcastAll(ws.EventProductAdded, product)
	return product, nil
}

func (uc *ProductUseCase) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return uc.productRepo.GetByID(ctx, id)
}

func (uc *ProductUseCase) ListProducts(ctx context.Context, limit, offset int) ([]*entity.Product, int64, error) {
	return uc.productRepo.List(ctx, limit, offset)
}

func (uc *ProductUseCase) UpdateProduct(ctx context.Context, userID, productID string, input ProductInput) (*entity.Product, error) {
	product, err := uc.ownedProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Category = input.Category
	product.Price = input.Price
	product.Unit = input.Unit
	product.Quantity = input.Quantity
	product.Available = input.Quantity > 0

	if err := uc.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	uc.wsManager.BroadcastAll(ws.EventProductUpdated, product)
	return product, nil
}

func (uc *ProductUseCase) DeleteProduct(ctx context.Context, userID, productID string) error {
	product, err := uc.ownedProduct(ctx, userID, productID)
	if err != nil {
		return err
	}

	if err := uc.productRepo.Delete(ctx, productID); err != nil {
		return err
	}

	logger.Info("Product %s deleted by farmer %s", productID, userID)
	uc.wsManager.BroadcastAll(ws.EventProductDeleted, map[string]string{
		"id":        product.ID,
		"farmer_id": product.FarmerID,
	})
	return nil
}

func (uc *ProductUseCase) ownedProduct(ctx context.Context, userID, productID string) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.FarmerID != userID {
		return nil, errors.Forbidden("Product belongs to another farmer", nil)
	}
	return product, nil
}
