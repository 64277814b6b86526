package bolt

import (
	"time"

	"flatfinder/internal/models"
)

// Documents carry their own tags so the wire shape of models never leaks
// into (or out of) the file format.

type userDoc struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Birthdate    time.Time `json:"birthdate"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserDoc(u models.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Birthdate:    u.Birthdate,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Birthdate:    d.Birthdate,
		IsAdmin:      d.IsAdmin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type flatDoc struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	City          string    `json:"city"`
	StreetName    string    `json:"street_name"`
	StreetNumber  int       `json:"street_number"`
	AreaSize      int       `json:"area_size"`
	HasAC         bool      `json:"has_ac"`
	YearBuilt     int       `json:"year_built"`
	RentPrice     int       `json:"rent_price"`
	DateAvailable time.Time `json:"date_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toFlatDoc(f models.Flat) flatDoc {
	return flatDoc(f)
}

func (d flatDoc) model() models.Flat {
	return models.Flat(d)
}

type messageDoc struct {
	ID          string    `json:"id"`
	FlatID      *string   `json:"flat_id,omitempty"`
	SenderID    string    `json:"sender_id"`
	SenderEmail string    `json:"sender_email"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMessageDoc(m models.Message) messageDoc {
	return messageDoc(m)
}

func (d messageDoc) model() models.Message {
	return models.Message(d)
}

type photoDoc struct {
	ID        string    `json:"id"`
	FlatID    string    `json:"flat_id"`
	OwnerID   string    `json:"owner_id"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"object_key"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  []byte    `json:"checksum"`
	Signature []byte    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

func toPhotoDoc(p models.Photo) photoDoc {
	return photoDoc(p)
}

func (d photoDoc) model() models.Photo {
	return models.Photo(d)
}

type favoriteDoc struct {
	CreatedAt time.Time `json:"created_at"`
}
