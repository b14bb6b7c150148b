package entity

import "time"

type Product struct {
	ID        string    `json:"id" firestore:"id"`
	FarmerID  string    `json:"farmer_id" firestore:"farmerId"`
	Name      string    `json:"name" firestore:"name"`
	Category  string    `json:"category" firestore:"category"`
	Price     float64   `json:"price" firestore:"price"` // per unit
	Unit      string    `json:"unit" firestore:"unit"`   // "kg", "crate", "dozen"
	Quantity  int       `json:"quantity" firestore:"quantity"`
	Available bool      `json:"available" firestore:"available"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
