package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// AddressStore is the saved-address storage.
type AddressStore interface {
	Create(ctx context.Context, a *model.Address) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Address, error)
}

type AddressHandler struct {
	Addresses AddressStore
}

func NewAddressHandler(addresses AddressStore) *AddressHandler {
	return &AddressHandler{Addresses: addresses}
}

type addressReq struct {
	AddressType   string `json:"addressType" validate:"required,oneof=Home Work Other"`
	FullName      string `json:"fullName" validate:"required,max=255"`
	FlatHouseNo   string `json:"flatHouseNo" validate:"required,max=100"`
	BuildingName  string `json:"buildingName" validate:"required,max=255"`
	StreetArea    string `json:"streetArea" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"required,max=100"`
	Pincode       string `json:"pincode" validate:"required,len=6,numeric"`
	Landmark      string `json:"landmark" validate:"max=255"`
	ContactNumber string `json:"contactNumber" validate:"required,len=10,numeric"`
}

var addressMessages = map[string]string{
	"AddressType":   "Address type must be Home, Work or Other.",
	"FullName":      "Full Name is required.",
	"FlatHouseNo":   "Flat / House No. is required.",
	"BuildingName":  "Building Name is required.",
	"StreetArea":    "Street / Area is required.",
	"City":          "City is required.",
	"State":         "State is required.",
	"Pincode":       "A valid 6-digit Pincode is required.",
	"ContactNumber": "A valid 10-digit Contact Number is required.",
}

// Create handles POST /v1/addresses.
func (h *AddressHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	trim(&req.AddressType, &req.FullName, &req.FlatHouseNo, &req.BuildingName, &req.StreetArea,
		&req.City, &req.State, &req.Pincode, &req.Landmark, &req.ContactNumber)
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validationMessages(err, addressMessages)})
	}

	a := model.Address{
		UserID:        uid,
		AddressType:   req.AddressType,
		FullName:      req.FullName,
		FlatHouseNo:   req.FlatHouseNo,
		BuildingName:  req.BuildingName,
		StreetArea:    req.StreetArea,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		ContactNumber: req.ContactNumber,
		CreatedAt:     time.Now().UTC(),
	}
	if req.Landmark != "" {
		a.Landmark = &req.Landmark
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Addresses.Create(ctx, &a); err != nil {
		c.Logger().Errorf("address: create for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save address failed"})
	}
	return c.JSON(http.StatusCreated, a)
}

// List handles GET /v1/addresses.
func (h *AddressHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Addresses.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
