package entities

import "time"

type Category string

// Категорії каталогу: фізично одна колекція, логічно два розділи.
const (
	CategoryTrailers    Category = "Причепи"
	CategoryAccessories Category = "Комплектуючі"
)

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"shortDescription"`
	SKU              string          `json:"sku,omitempty"`
	Brand            string          `json:"brand"`
	Model            string          `json:"model,omitempty"`
	Category         Category        `json:"category"`
	SubCategory      string          `json:"subCategory,omitempty"`
	Type             string          `json:"type"`
	Price            float64         `json:"price"`
	Currency         string          `json:"currency"`
	InStock          bool            `json:"inStock"`
	Quantity         int             `json:"quantity"`
	Images           []string        `json:"images"`
	Specifications   []Specification `json:"specifications"`
	Compatibility    []string        `json:"compatibility,omitempty"`
	IsFeatured       bool            `json:"isFeatured"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
