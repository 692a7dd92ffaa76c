package models

// CostStep is the granularity of product prices, every cost is a multiple of it
const CostStep = 5

// Product represents a product sold by a seller
type Product struct {
	ID              int
	ProductName     string
	Cost            int
	AmountAvailable int
	SellerID        int
}

// ProductResponse is the externally visible view of a product
type ProductResponse struct {
	ID              int    `json:"id"`
	ProductName     string `json:"productName"`
	Cost            int    `json:"cost"`
	AmountAvailable int    `json:"amountAvailable"`
	SellerID        int    `json:"sellerId"`
}

// ToResponse projects the product into its API view
func (p *Product) ToResponse() ProductResponse {
	return ProductResponse{
		ID:              p.ID,
		ProductName:     p.ProductName,
		Cost:            p.Cost,
		AmountAvailable: p.AmountAvailable,
		SellerID:        p.SellerID,
	}
}

// ProductsToResponse projects a list of products
func ProductsToResponse(products []Product) []ProductResponse {
	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, products[i].ToResponse())
	}
	return result
}

// ProductRequest is used for both product creation and update.
//
// On creation ProductName, Cost and AmountAvailable are required, on update every field is optional.
// SellerID is always taken from the caller and is rejected if present.
type ProductRequest struct {
	ProductName     *string `json:"productName,omitempty"`
	Cost            *int    `json:"cost,omitempty"`
	AmountAvailable *int    `json:"amountAvailable,omitempty"`
	SellerID        *int    `json:"sellerId,omitempty"`
}
