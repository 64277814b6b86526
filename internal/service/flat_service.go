package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"flatfinder/internal/ids"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

type FlatService struct {
	flats repository.FlatRepository
	tasks TaskPublisher
	log   zerolog.Logger
}

func NewFlatService(flats repository.FlatRepository, tasks TaskPublisher, log zerolog.Logger) *FlatService {
	return &FlatService{flats: flats, tasks: tasks, log: log}
}

type FlatQuery struct {
	City        string `form:"city" json:"city"`
	OwnerID     string `form:"ownerId" json:"ownerId"`
	MinPrice    int    `form:"minPrice" json:"minPrice" validate:"gte=0,lte=2147483647"`
	MaxPrice    int    `form:"maxPrice" json:"maxPrice" validate:"gte=0,lte=2147483647"`
	MinArea     int    `form:"minArea" json:"minArea" validate:"gte=0,lte=2147483647"`
	MaxArea     int    `form:"maxArea" json:"maxArea" validate:"gte=0,lte=2147483647"`
	AvailableBy string `form:"availableBy" json:"availableBy"`
	SortBy      string `form:"sortBy" json:"sortBy" validate:"omitempty,oneof=city rentPrice areaSize dateAvailable createdAt"`
	Order       string `form:"order" json:"order" validate:"omitempty,oneof=asc desc"`
	Page
}

func (s *FlatService) List(ctx context.Context, query FlatQuery) ([]models.Flat, error) {
	extra := map[string]string{}
	var availableBy time.Time
	if query.AvailableBy != "" {
		var ok bool
		if availableBy, ok = parseDate(query.AvailableBy); !ok {
			extra["availableBy"] = "must be a date (YYYY-MM-DD)"
		}
	}
	if err := validateStruct("Invalid filter.", query, extra); err != nil {
		return nil, err
	}

	return s.flats.List(ctx, repository.FlatFilter{
		City:        strings.TrimSpace(query.City),
		OwnerID:     query.OwnerID,
		MinPrice:    query.MinPrice,
		MaxPrice:    query.MaxPrice,
		MinArea:     query.MinArea,
		MaxArea:     query.MaxArea,
		AvailableBy: availableBy,
		SortBy:      repository.FlatSort(query.SortBy),
		Descending:  query.Order == "desc",
		Limit:       query.Limit(),
		Offset:      query.Offset(),
	})
}

func (s *FlatService) Get(ctx context.Context, id string) (models.Flat, error) {
	return s.flats.GetByID(ctx, id)
}

type FlatInput struct {
	City          string `json:"city" validate:"required"`
	StreetName    string `json:"streetName" validate:"required"`
	StreetNumber  int    `json:"streetNumber" validate:"gt=0,lte=2147483647"`
	AreaSize      int    `json:"areaSize" validate:"gt=0,lte=2147483647"`
	HasAC         bool   `json:"hasAc"`
	YearBuilt     int    `json:"yearBuilt" validate:"required,gte=1800,lte=2100"`
	RentPrice     int    `json:"rentPrice" validate:"gt=0,lte=2147483647"`
	DateAvailable string `json:"dateAvailable" validate:"required"`
}

func (s *FlatService) Create(ctx context.Context, actor security.Identity, input FlatInput) (models.Flat, error) {
	input.City = strings.TrimSpace(input.City)
	input.StreetName = strings.TrimSpace(input.StreetName)

	extra := map[string]string{}
	available, ok := parseDate(input.DateAvailable)
	if input.DateAvailable != "" && !ok {
		extra["dateAvailable"] = "must be a date (YYYY-MM-DD)"
	}
	if err := validateStruct("Invalid flat.", input, extra); err != nil {
		return models.Flat{}, err
	}

	now := time.Now().UTC()
	flat := models.Flat{
		ID:            ids.New(),
		OwnerID:       actor.UserID,
		City:          input.City,
		StreetName:    input.StreetName,
		StreetNumber:  input.StreetNumber,
		AreaSize:      input.AreaSize,
		HasAC:         input.HasAC,
		YearBuilt:     input.YearBuilt,
		RentPrice:     input.RentPrice,
		DateAvailable: available,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.flats.Create(ctx, flat); err != nil {
		return models.Flat{}, err
	}
	return flat, nil
}

// FlatPatch is a partial update; nil fields keep their stored value.
type FlatPatch struct {
	City          *string `json:"city" validate:"omitnil,min=1"`
	StreetName    *string `json:"streetName" validate:"omitnil,min=1"`
	StreetNumber  *int    `json:"streetNumber" validate:"omitnil,gt=0,lte=2147483647"`
	AreaSize      *int    `json:"areaSize" validate:"omitnil,gt=0,lte=2147483647"`
	HasAC         *bool   `json:"hasAc"`
	YearBuilt     *int    `json:"yearBuilt" validate:"omitnil,gte=1800,lte=2100"`
	RentPrice     *int    `json:"rentPrice" validate:"omitnil,gt=0,lte=2147483647"`
	DateAvailable *string `json:"dateAvailable"`
}

func (s *FlatService) Update(ctx context.Context, actor security.Identity, id string, patch FlatPatch) (models.Flat, error) {
	flat, err := s.flats.GetByID(ctx, id)
	if err != nil {
		return models.Flat{}, err
	}
	if !actor.CanActOn(flat.OwnerID) {
		return models.Flat{}, ErrForbidden
	}

	trim(patch.City)
	trim(patch.StreetName)

	extra := map[string]string{}
	var available time.Time
	if patch.DateAvailable != nil {
		var ok bool
		if available, ok = parseDate(*patch.DateAvailable); !ok {
			extra["dateAvailable"] = "must be a date (YYYY-MM-DD)"
		}
	}
	if err := validateStruct("Invalid flat.", patch, extra); err != nil {
		return models.Flat{}, err
	}

	if patch.City != nil {
		flat.City = *patch.City
	}
	if patch.StreetName != nil {
		flat.StreetName = *patch.StreetName
	}
	if patch.StreetNumber != nil {
		flat.StreetNumber = *patch.StreetNumber
	}
	if patch.AreaSize != nil {
		flat.AreaSize = *patch.AreaSize
	}
	if patch.HasAC != nil {
		flat.HasAC = *patch.HasAC
	}
	if patch.YearBuilt != nil {
		flat.YearBuilt = *patch.YearBuilt
	}
	if patch.RentPrice != nil {
		flat.RentPrice = *patch.RentPrice
	}
	if patch.DateAvailable != nil {
		flat.DateAvailable = available
	}

	if err := s.flats.Update(ctx, flat); err != nil {
		return models.Flat{}, err
	}
	return s.flats.GetByID(ctx, id)
}

func (s *FlatService) Delete(ctx context.Context, actor security.Identity, id string) error {
	flat, err := s.flats.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActOn(flat.OwnerID) {
		return ErrForbidden
	}
	if err := s.flats.Delete(ctx, id); err != nil {
		return err
	}

	enqueuePurge(ctx, s.tasks, s.log, id)
	s.log.Info().Str("flat_id", id).Str("actor_id", actor.UserID).Msg("flat deleted")
	return nil
}
