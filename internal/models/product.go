package models

import "time"

// Product is a catalog entry. Name and code are globally unique.
type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Type            string    `json:"type"`
	Price           string    `json:"price"`
	AttachmentEquip string    `json:"attachmentEquip,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProductRequest holds the data for creating or updating a product.
// AttachmentEquip is a filename reference; the file itself lives under the
// configured upload directory.
type ProductRequest struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	Price           string `json:"price"`
	Code            string `json:"code"`
	AttachmentEquip string `json:"attachmentEquip"`
}
