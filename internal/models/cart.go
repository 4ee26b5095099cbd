package models

// Cart is the per-user item container. One cart per user, created together
// with the account.
type Cart struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// CartItem is a (product, quantity) line within a cart. The (cartId,
// productId) pair is unique; a repeat add is rejected, not merged.
type CartItem struct {
	ID        string   `json:"id"`
	CartID    string   `json:"cartId"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}
