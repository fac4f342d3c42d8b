package webhook

import (
	"errors"
	"log"

	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services/clerk"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClerkHandler applies identity-provider lifecycle events. Deliveries
// are at-least-once and unordered, so every event is an idempotent
// upsert or delete.
type ClerkHandler struct {
	db       *gorm.DB
	verifier *clerk.WebhookVerifier
}

// NewClerkHandler creates a new webhook handler. verifier may be nil
// when the signing secret is not configured; deliveries then answer 503.
func NewClerkHandler(db *gorm.DB, verifier *clerk.WebhookVerifier) *ClerkHandler {
	return &ClerkHandler{db: db, verifier: verifier}
}

// HandleEvent handles POST /api/v1/webhooks/clerk
func (h *ClerkHandler) HandleEvent(c *fiber.Ctx) error {
	if h.verifier == nil {
		return response.ServiceUnavailable(c, "Webhook verification is not configured", "WEBHOOK_CONFIG_ERROR")
	}

	event, err := h.verifier.Verify(
		c.Get("svix-id"),
		c.Get("svix-timestamp"),
		c.Get("svix-signature"),
		c.Body(),
	)
	if err != nil {
		if errors.Is(err, clerk.ErrWebhookTimestampSkew) {
			return response.BadRequest(c, "Webhook timestamp outside tolerance")
		}
		if errors.Is(err, clerk.ErrInvalidWebhookSignature) {
			log.Printf("Rejected webhook with invalid signature (svix-id %s)", c.Get("svix-id"))
			return response.Unauthorized(c, "Invalid webhook signature")
		}
		return response.BadRequest(c, "Malformed webhook payload")
	}

	switch event.Type {
	case clerk.EventUserCreated, clerk.EventUserUpdated:
		if err := h.upsertUser(&event.Data); err != nil {
			log.Printf("Webhook %s failed for user %s: %v", event.Type, event.Data.ID, err)
			return response.InternalServerError(c, "Failed to apply webhook")
		}
	case clerk.EventUserDeleted:
		if err := h.deleteUser(event.Data.ID); err != nil {
			log.Printf("Webhook %s failed for user %s: %v", event.Type, event.Data.ID, err)
			return response.InternalServerError(c, "Failed to apply webhook")
		}
	default:
		// Unknown event types are acknowledged so the provider stops retrying.
		log.Printf("Ignoring webhook event type %s", event.Type)
	}

	return response.SuccessWithMessage(c, "Webhook processed", nil)
}

func (h *ClerkHandler) upsertUser(data *clerk.WebhookUserData) error {
	if data.ID == "" {
		return errors.New("webhook user payload missing id")
	}

	role := data.PublicMetadata.Role
	if role == "" {
		role = model.RoleStudent
	}

	user := model.User{
		ID:       data.ID,
		Name:     data.Name(),
		Email:    data.Email(),
		ImageURL: data.ImageURL,
		Role:     role,
	}

	return h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "image_url", "role", "updated_at"}),
	}).Create(&user).Error
}

// deleteUser removes the user and the rows that only make sense while
// the account exists. Deleting an unknown id is a no-op success.
func (h *ClerkHandler) deleteUser(userID string) error {
	if userID == "" {
		return errors.New("webhook user payload missing id")
	}

	return h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Purchase{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.LectureProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", userID).Error
	})
}
