package dto

import (
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/domain/catalogs/product"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/documents/production"
	"bakehouse/internal/domain/documents/sale"
	"bakehouse/internal/domain/documents/wastage"
)

// --- Ingredients ---

type CreateIngredientRequest struct {
	Name        string         `json:"name"`
	Quantity    types.Quantity `json:"quantity"`
	CostPerUnit types.Money    `json:"costPerUnit"`
	ExpiryDate  *Date          `json:"expiryDate"`
}

func (r *CreateIngredientRequest) ToInput() ingredient.CreateInput {
	return ingredient.CreateInput{
		Name:        r.Name,
		Quantity:    r.Quantity,
		CostPerUnit: r.CostPerUnit,
		ExpiryDate:  r.ExpiryDate.Ptr(),
	}
}

type UpdateIngredientRequest struct {
	Name        *string      `json:"name"`
	CostPerUnit *types.Money `json:"costPerUnit"`
	ExpiryDate  *Date        `json:"expiryDate"`
	ClearExpiry bool         `json:"clearExpiry"`
	Version     int          `json:"version" binding:"required,min=1"`
}

func (r *UpdateIngredientRequest) ToInput() ingredient.UpdateInput {
	return ingredient.UpdateInput{
		Name:        r.Name,
		CostPerUnit: r.CostPerUnit,
		ExpiryDate:  r.ExpiryDate.Ptr(),
		ClearExpiry: r.ClearExpiry,
		Version:     r.Version,
	}
}

type UpdateStockRequest struct {
	Quantity  types.Quantity `json:"quantity"`
	Operation string         `json:"operation" binding:"required,oneof=add subtract"`
}

// --- Recipes ---

type RecipeLineRequest struct {
	IngredientID   id.ID          `json:"ingredientId"`
	QuantityNeeded types.Quantity `json:"quantityNeeded"`
}

type CreateRecipeRequest struct {
	Name           string              `json:"name"`
	OutputQuantity int                 `json:"outputQuantity"`
	Ingredients    []RecipeLineRequest `json:"ingredients"`
}

func (r *CreateRecipeRequest) ToInput() recipe.CreateInput {
	lines := make([]recipe.LineInput, len(r.Ingredients))
	for i, l := range r.Ingredients {
		lines[i] = recipe.LineInput{IngredientID: l.IngredientID, QuantityNeeded: l.QuantityNeeded}
	}
	return recipe.CreateInput{Name: r.Name, OutputQuantity: r.OutputQuantity, Ingredients: lines}
}

// --- Production ---

type CheckProductionRequest struct {
	SemiID   id.ID `json:"semiId" binding:"required"`
	Quantity int   `json:"quantity"`
}

type RecordProductionRequest struct {
	SemiID     id.ID `json:"semiId" binding:"required"`
	Quantity   int   `json:"quantity"`
	ExpiryDate *Date `json:"expiryDate"`
}

func (r *RecordProductionRequest) ToInput() production.RecordInput {
	return production.RecordInput{SemiID: r.SemiID, Quantity: r.Quantity, ExpiryDate: r.ExpiryDate.Ptr()}
}

// --- Wastage ---

type RecordWastageRequest struct {
	ItemType string         `json:"itemType"`
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
	Category string         `json:"category"`
	Detail   string         `json:"detail"`
}

func (r *RecordWastageRequest) ToInput() wastage.RecordInput {
	return wastage.RecordInput{
		ItemType: entity.ItemKind(r.ItemType),
		ItemID:   r.ItemID,
		Quantity: r.Quantity,
		Category: r.Category,
		Detail:   r.Detail,
	}
}

// WastageCandidate is an item that currently has stock to write off.
type WastageCandidate struct {
	ItemType string         `json:"itemType"`
	ID       id.ID          `json:"id"`
	Name     string         `json:"name"`
	Quantity types.Quantity `json:"quantity"`
}

// --- Products ---

type ComponentRequest struct {
	SemiID   id.ID `json:"semiId"`
	Quantity int   `json:"quantity"`
}

type CreateProductRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	SellingPrice types.Money        `json:"sellingPrice"`
	Components   []ComponentRequest `json:"components"`
}

func (r *CreateProductRequest) ToInput() product.CreateInput {
	comps := make([]product.ComponentInput, len(r.Components))
	for i, c := range r.Components {
		comps[i] = product.ComponentInput{SemiID: c.SemiID, Quantity: c.Quantity}
	}
	return product.CreateInput{
		Name:         r.Name,
		Description:  r.Description,
		SellingPrice: r.SellingPrice,
		Components:   comps,
	}
}

// --- Sales ---

type CheckSaleRequest struct {
	ProductID id.ID `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type RecordSaleRequest struct {
	ProductID id.ID  `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

func (r *RecordSaleRequest) ToInput() sale.RecordInput {
	return sale.RecordInput{ProductID: r.ProductID, Quantity: r.Quantity, Notes: r.Notes}
}

// AvailabilityResponse confirms a check passed.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}
