package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	GetByCode(ctx context.Context, code string) (*dto.ProductResponse, error)
	List(ctx context.Context, search string, activeOnly bool) ([]dto.ProductResponse, error)
}

type productService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.SalePrice.IsNegative() || req.CostPrice.IsNegative() {
		return nil, apperr.Validation("preços não podem ser negativos")
	}

	product := &model.Product{
		Code:      req.Code,
		Name:      req.Name,
		NCM:       req.NCM,
		CFOP:      req.CFOP,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		Active:    true,
	}
	if product.NCM == "" {
		product.NCM = "00000000"
	}
	if product.CFOP == "" {
		product.CFOP = "5102"
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperr.Conflict("código de produto já cadastrado")
	}
	return productToResponse(product), nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("produto não encontrado")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.NCM != nil {
		product.NCM = *req.NCM
	}
	if req.CFOP != nil {
		product.CFOP = *req.CFOP
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, apperr.Validation("preço de custo não pode ser negativo")
		}
		product.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return nil, apperr.Validation("preço de venda não pode ser negativo")
		}
		product.SalePrice = *req.SalePrice
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return productToResponse(product), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("produto não encontrado")
	}
	return productToResponse(product), nil
}

func (s *productService) GetByCode(ctx context.Context, code string) (*dto.ProductResponse, error) {
	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		return nil, apperr.NotFound("produto não encontrado")
	}
	return productToResponse(product), nil
}

func (s *productService) List(ctx context.Context, search string, activeOnly bool) ([]dto.ProductResponse, error) {
	products, err := s.products.List(ctx, search, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, *productToResponse(&products[i]))
	}
	return out, nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		NCM:       p.NCM,
		CFOP:      p.CFOP,
		CostPrice: p.CostPrice,
		SalePrice: p.SalePrice,
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		Active:    p.Active,
	}
}
