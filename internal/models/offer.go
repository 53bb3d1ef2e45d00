package models

import "time"

// Offer is a single shop offer for a product. Offers carry no identity across
// fetches: every snapshot is rebuilt from scratch.
type Offer struct {
	OfferURL    string  `bson:"offer_url" json:"offer_url"`
	OriginalURL string  `bson:"original_url" json:"original_url"`
	Title       string  `bson:"title" json:"title"`
	Shop        string  `bson:"shop" json:"shop"`
	Price       float64 `bson:"price" json:"price"`
	IsUsed      bool    `bson:"is_used" json:"is_used"`
}

// OfferSnapshot is the full offer listing for one product URL at one point in
// time. Persisted keyed by ProductURL, replacing the previous snapshot.
type OfferSnapshot struct {
	ProductURL  string    `bson:"url" json:"url"`
	Offers      []Offer   `bson:"offers" json:"offers"`
	TotalOffers int       `bson:"total_offers" json:"total_offers"`
	ParsedAt    time.Time `bson:"parsed_at" json:"parsed_at"`
}
