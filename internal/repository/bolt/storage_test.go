package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flatfinder/internal/ids"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
)

type StoreSuite struct {
	suite.Suite
	store *repository.Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	store, err := Open(filepath.Join(s.T().TempDir(), "flatfinder.db"))
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *StoreSuite) createUser(email string) models.User {
	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: []byte("hash"),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Birthdate:    time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Users.Create(s.ctx, user))
	return user
}

func (s *StoreSuite) createFlat(ownerID, city string, rent int, created time.Time) models.Flat {
	flat := models.Flat{
		ID:            ids.New(),
		OwnerID:       ownerID,
		City:          city,
		StreetName:    "Main",
		StreetNumber:  1,
		AreaSize:      rent / 10,
		YearBuilt:     2000,
		RentPrice:     rent,
		DateAvailable: created.AddDate(0, 1, 0),
		CreatedAt:     created,
	}
	s.Require().NoError(s.store.Flats.Create(s.ctx, flat))
	return flat
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
	s.Equal("bolt", s.store.Backend)
}

func (s *StoreSuite) TestUserEmailIsUniqueCaseInsensitive() {
	s.createUser("ada@example.com")

	err := s.store.Users.Create(s.ctx, models.User{ID: ids.New(), Email: "ADA@example.com"})
	s.ErrorIs(err, repository.ErrEmailTaken)

	found, err := s.store.Users.FindByEmail(s.ctx, " Ada@Example.com ")
	s.Require().NoError(err)
	s.Equal("ada@example.com", found.Email)
	s.Equal([]byte("hash"), found.PasswordHash)
}

func (s *StoreSuite) TestUserUpdateReindexesEmail() {
	ada := s.createUser("ada@example.com")
	s.createUser("bob@example.com")

	ada.Email = "bob@example.com"
	s.ErrorIs(s.store.Users.Update(s.ctx, ada), repository.ErrEmailTaken)

	ada.Email = "countess@example.com"
	ada.FirstName = "Augusta"
	s.Require().NoError(s.store.Users.Update(s.ctx, ada))

	_, err := s.store.Users.FindByEmail(s.ctx, "ada@example.com")
	s.ErrorIs(err, repository.ErrUserNotFound)

	got, err := s.store.Users.FindByEmail(s.ctx, "countess@example.com")
	s.Require().NoError(err)
	s.Equal("Augusta", got.FirstName)
	s.Equal([]byte("hash"), got.PasswordHash, "update must not touch the password hash")
}

func (s *StoreSuite) TestUserPasswordAndAdmin() {
	ada := s.createUser("ada@example.com")

	s.Require().NoError(s.store.Users.UpdatePassword(s.ctx, ada.ID, []byte("new-hash")))
	s.Require().NoError(s.store.Users.SetAdmin(s.ctx, ada.ID, true))

	got, err := s.store.Users.GetByID(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.Equal([]byte("new-hash"), got.PasswordHash)
	s.True(got.IsAdmin)

	s.ErrorIs(s.store.Users.SetAdmin(s.ctx, "missing", true), repository.ErrUserNotFound)
}

func (s *StoreSuite) TestUserListPaginates() {
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		s.createUser(email)
	}

	all, err := s.store.Users.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Len(all, 3)

	second, err := s.store.Users.List(s.ctx, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(second, 1)
	s.Equal(all[1].ID, second[0].ID)

	beyond, err := s.store.Users.List(s.ctx, 10, 5)
	s.Require().NoError(err)
	s.Empty(beyond)
}

func (s *StoreSuite) TestFlatListFiltersAndSorts() {
	owner := s.createUser("owner@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cheap := s.createFlat(owner.ID, "Berlin", 500, base)
	mid := s.createFlat(owner.ID, "berlin", 900, base.Add(time.Hour))
	s.createFlat(owner.ID, "Paris", 1500, base.Add(2*time.Hour))

	flats, err := s.store.Flats.List(s.ctx, repository.FlatFilter{City: "BERLIN"})
	s.Require().NoError(err)
	s.Require().Len(flats, 2)
	s.Equal(cheap.ID, flats[0].ID)

	flats, err = s.store.Flats.List(s.ctx, repository.FlatFilter{
		SortBy:     repository.SortRentPrice,
		Descending: true,
		MaxPrice:   1000,
	})
	s.Require().NoError(err)
	s.Require().Len(flats, 2)
	s.Equal(mid.ID, flats[0].ID)
	s.Equal(cheap.ID, flats[1].ID)

	flats, err = s.store.Flats.List(s.ctx, repository.FlatFilter{Limit: 1, Offset: 2})
	s.Require().NoError(err)
	s.Require().Len(flats, 1)
	s.Equal("Paris", flats[0].City)
}

func (s *StoreSuite) TestFlatUpdateKeepsOwner() {
	owner := s.createUser("owner@example.com")
	flat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())

	flat.OwnerID = "someone-else"
	flat.RentPrice = 650
	s.Require().NoError(s.store.Flats.Update(s.ctx, flat))

	got, err := s.store.Flats.GetByID(s.ctx, flat.ID)
	s.Require().NoError(err)
	s.Equal(owner.ID, got.OwnerID)
	s.Equal(650, got.RentPrice)

	s.ErrorIs(s.store.Flats.Update(s.ctx, models.Flat{ID: "missing"}), repository.ErrFlatNotFound)
}

func (s *StoreSuite) TestFlatCreateRequiresOwner() {
	err := s.store.Flats.Create(s.ctx, models.Flat{ID: ids.New(), OwnerID: "ghost"})
	s.ErrorIs(err, repository.ErrUserNotFound)
}

func (s *StoreSuite) TestFavorites() {
	owner := s.createUser("owner@example.com")
	fan := s.createUser("fan@example.com")
	flat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())

	s.Require().NoError(s.store.Favorites.Add(s.ctx, fan.ID, flat.ID))
	s.ErrorIs(s.store.Favorites.Add(s.ctx, fan.ID, flat.ID), repository.ErrFavoriteExists)
	s.ErrorIs(s.store.Favorites.Add(s.ctx, fan.ID, "missing"), repository.ErrFlatNotFound)

	flats, err := s.store.Favorites.ListFlats(s.ctx, fan.ID)
	s.Require().NoError(err)
	s.Require().Len(flats, 1)
	s.Equal(flat.ID, flats[0].ID)

	s.Require().NoError(s.store.Favorites.Remove(s.ctx, fan.ID, flat.ID))
	s.ErrorIs(s.store.Favorites.Remove(s.ctx, fan.ID, flat.ID), repository.ErrFavoriteNotFound)

	flats, err = s.store.Favorites.ListFlats(s.ctx, fan.ID)
	s.Require().NoError(err)
	s.Empty(flats)
}

func (s *StoreSuite) TestMessages() {
	owner := s.createUser("owner@example.com")
	tenant := s.createUser("tenant@example.com")
	flat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())
	base := time.Now().UTC()

	first := models.Message{ID: ids.New(), FlatID: &flat.ID, SenderID: tenant.ID, SenderEmail: tenant.Email, RecipientID: owner.ID, Content: "hi", CreatedAt: base}
	second := models.Message{ID: ids.New(), FlatID: &flat.ID, SenderID: tenant.ID, SenderEmail: tenant.Email, RecipientID: owner.ID, Content: "still there?", CreatedAt: base.Add(time.Minute)}
	s.Require().NoError(s.store.Messages.Create(s.ctx, first))
	s.Require().NoError(s.store.Messages.Create(s.ctx, second))

	inbox, err := s.store.Messages.ListByRecipient(s.ctx, owner.ID, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(inbox, 2)
	s.Equal(second.ID, inbox[0].ID, "newest first")

	sent, err := s.store.Messages.ListBySender(s.ctx, tenant.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(sent, 2)

	unread, err := s.store.Messages.CountUnread(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(2, unread)

	s.Require().NoError(s.store.Messages.MarkRead(s.ctx, first.ID))
	unread, err = s.store.Messages.CountUnread(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(1, unread)

	s.Require().NoError(s.store.Messages.Delete(s.ctx, first.ID))
	_, err = s.store.Messages.GetByID(s.ctx, first.ID)
	s.ErrorIs(err, repository.ErrMessageNotFound)
	s.ErrorIs(s.store.Messages.MarkRead(s.ctx, first.ID), repository.ErrMessageNotFound)
}

func (s *StoreSuite) TestFlatDeleteDetachesMessagesAndDropsPhotos() {
	owner := s.createUser("owner@example.com")
	tenant := s.createUser("tenant@example.com")
	flat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())

	s.Require().NoError(s.store.Favorites.Add(s.ctx, tenant.ID, flat.ID))
	msg := models.Message{ID: ids.New(), FlatID: &flat.ID, SenderID: tenant.ID, RecipientID: owner.ID, Content: "hi"}
	s.Require().NoError(s.store.Messages.Create(s.ctx, msg))
	photo := models.Photo{ID: ids.New(), FlatID: flat.ID, OwnerID: owner.ID, ObjectKey: "flats/" + flat.ID + "/a.jpg"}
	s.Require().NoError(s.store.Photos.Create(s.ctx, photo))

	s.Require().NoError(s.store.Flats.Delete(s.ctx, flat.ID))
	s.ErrorIs(s.store.Flats.Delete(s.ctx, flat.ID), repository.ErrFlatNotFound)

	got, err := s.store.Messages.GetByID(s.ctx, msg.ID)
	s.Require().NoError(err)
	s.Nil(got.FlatID)

	_, err = s.store.Photos.GetByID(s.ctx, photo.ID)
	s.ErrorIs(err, repository.ErrPhotoNotFound)

	favs, err := s.store.Favorites.ListFlats(s.ctx, tenant.ID)
	s.Require().NoError(err)
	s.Empty(favs)
}

func (s *StoreSuite) TestUserDeleteCascades() {
	owner := s.createUser("owner@example.com")
	tenant := s.createUser("tenant@example.com")
	other := s.createUser("other@example.com")
	ownFlat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())
	otherFlat := s.createFlat(other.ID, "Paris", 800, time.Now().UTC())

	s.Require().NoError(s.store.Favorites.Add(s.ctx, owner.ID, otherFlat.ID))
	s.Require().NoError(s.store.Favorites.Add(s.ctx, tenant.ID, ownFlat.ID))

	toOwner := models.Message{ID: ids.New(), FlatID: &ownFlat.ID, SenderID: tenant.ID, RecipientID: owner.ID, Content: "hi"}
	thirdParty := models.Message{ID: ids.New(), FlatID: &ownFlat.ID, SenderID: tenant.ID, RecipientID: other.ID, Content: "seen this?"}
	s.Require().NoError(s.store.Messages.Create(s.ctx, toOwner))
	s.Require().NoError(s.store.Messages.Create(s.ctx, thirdParty))

	s.Require().NoError(s.store.Users.Delete(s.ctx, owner.ID))

	_, err := s.store.Users.GetByID(s.ctx, owner.ID)
	s.ErrorIs(err, repository.ErrUserNotFound)
	_, err = s.store.Users.FindByEmail(s.ctx, "owner@example.com")
	s.ErrorIs(err, repository.ErrUserNotFound)

	_, err = s.store.Flats.GetByID(s.ctx, ownFlat.ID)
	s.ErrorIs(err, repository.ErrFlatNotFound)
	_, err = s.store.Flats.GetByID(s.ctx, otherFlat.ID)
	s.NoError(err)

	favs, err := s.store.Favorites.ListFlats(s.ctx, tenant.ID)
	s.Require().NoError(err)
	s.Empty(favs)

	_, err = s.store.Messages.GetByID(s.ctx, toOwner.ID)
	s.ErrorIs(err, repository.ErrMessageNotFound)

	kept, err := s.store.Messages.GetByID(s.ctx, thirdParty.ID)
	s.Require().NoError(err)
	s.Nil(kept.FlatID)

	// The email is free again.
	s.createUser("owner@example.com")
}

func (s *StoreSuite) TestPhotosByFlat() {
	owner := s.createUser("owner@example.com")
	flat := s.createFlat(owner.ID, "Berlin", 500, time.Now().UTC())
	base := time.Now().UTC()

	a := models.Photo{ID: ids.New(), FlatID: flat.ID, OwnerID: owner.ID, CreatedAt: base}
	b := models.Photo{ID: ids.New(), FlatID: flat.ID, OwnerID: owner.ID, CreatedAt: base.Add(time.Second)}
	s.Require().NoError(s.store.Photos.Create(s.ctx, b))
	s.Require().NoError(s.store.Photos.Create(s.ctx, a))
	s.ErrorIs(s.store.Photos.Create(s.ctx, models.Photo{ID: ids.New(), FlatID: "missing"}), repository.ErrFlatNotFound)

	photos, err := s.store.Photos.ListByFlat(s.ctx, flat.ID)
	s.Require().NoError(err)
	s.Require().Len(photos, 2)
	s.Equal(a.ID, photos[0].ID)

	s.Require().NoError(s.store.Photos.Delete(s.ctx, a.ID))
	s.ErrorIs(s.store.Photos.Delete(s.ctx, a.ID), repository.ErrPhotoNotFound)

	photos, err = s.store.Photos.ListByFlat(s.ctx, flat.ID)
	s.Require().NoError(err)
	s.Len(photos, 1)
}

func (s *StoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.store.Users.GetByID(ctx, "x")
	s.ErrorIs(err, context.Canceled)
}
