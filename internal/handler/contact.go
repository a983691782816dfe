package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// ContactStore stores contact form submissions.
type ContactStore interface {
	Create(ctx context.Context, m *model.ContactMessage) error
}

type ContactHandler struct {
	Messages ContactStore
}

func NewContactHandler(messages ContactStore) *ContactHandler {
	return &ContactHandler{Messages: messages}
}

type contactReq struct {
	Name    string `json:"name" form:"name" validate:"required,max=255"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Subject string `json:"subject" form:"subject" validate:"required,max=255"`
	Message string `json:"message" form:"message" validate:"required,max=5000"`
}

var contactMessages = map[string]string{
	"Name":    "Name is required.",
	"Email":   "A valid Email Address is required.",
	"Subject": "Subject is required.",
	"Message": "Message is required.",
}

// Submit handles POST /contact.
func (h *ContactHandler) Submit(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	trim(&req.Name, &req.Email, &req.Subject, &req.Message)
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validationMessages(err, contactMessages)})
	}

	m := model.ContactMessage{Name: req.Name, Email: req.Email, Subject: req.Subject, Message: req.Message}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Messages.Create(ctx, &m); err != nil {
		c.Logger().Errorf("contact: save message: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save message failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "message": "Thank you! We will get back to you soon."})
}
