package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/util"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type LoginResponse struct {
	User    UserResponse `json:"user"`
	IsAdmin bool         `json:"is_admin"`
}

type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Plan            *string   `json:"plan"`
	IsBanned        bool      `json:"is_banned"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Plan:            u.Plan,
		IsBanned:        u.IsBanned,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

type ChangeNameRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type UpgradePlanRequest struct {
	Plan string `json:"plan"`
}

type CurrentPlanResponse struct {
	Plan    *string `json:"plan"`
	HasPlan bool    `json:"has_plan"`
}

// ProductRequest is used for both create and partial update. On create every
// required field must be present.
type ProductRequest struct {
	Name          *string             `json:"name"`
	Description   *string             `json:"description"`
	Category      *string             `json:"category"`
	Price         *decimal.Decimal    `json:"price"`
	StockQuantity *int                `json:"stock_quantity"`
	Images        []string            `json:"images"`
	Ingredients   []models.Ingredient `json:"ingredients"`
	ServingSize   *string             `json:"serving_size"`
	HowToUse      *string             `json:"how_to_use"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  *int      `json:"quantity"`
}

// Qty returns the requested quantity, 1 when omitted.
func (r CartItemRequest) Qty() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type BlogRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	CoverImage *string  `json:"cover_image"`
	Category   *string  `json:"category"`
	Status     *string  `json:"status"`
	Tags       []string `json:"tags"`
}

type CommentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Content string `json:"content"`
	Website string `json:"website"`
}

type Page[T any] struct {
	Items []T       `json:"items"`
	Meta  util.Meta `json:"meta"`
}

func NewPage[T any](items []T, meta util.Meta) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: meta}
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func OK(msg string) MessageResponse {
	return MessageResponse{Success: true, Message: msg}
}
