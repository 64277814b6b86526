package models

import "time"

type Flat struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	City          string    `json:"city"`
	StreetName    string    `json:"streetName"`
	StreetNumber  int       `json:"streetNumber"`
	AreaSize      int       `json:"areaSize"`
	HasAC         bool      `json:"hasAc"`
	YearBuilt     int       `json:"yearBuilt"`
	RentPrice     int       `json:"rentPrice"`
	DateAvailable time.Time `json:"dateAvailable"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Favorite struct {
	UserID    string    `json:"userId"`
	FlatID    string    `json:"flatId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Photo struct {
	ID        string    `json:"id"`
	FlatID    string    `json:"flatId"`
	OwnerID   string    `json:"ownerId"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"objectKey"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"sizeBytes"`
	Checksum  []byte    `json:"checksum"`
	Signature []byte    `json:"signature"`
	CreatedAt time.Time `json:"createdAt"`
}
