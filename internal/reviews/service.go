package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

const uniqueReviewConstraint = "ux_reviews_product_user"

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service manages product reviews.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, actor auth.Actor, reviewID uuid.UUID) error
	ListForProduct(ctx context.Context, productID uuid.UUID, sort Sort, limit int) (*ProductReviews, error)
	List(ctx context.Context, actor auth.Actor, params pagination.Params) (*ReviewPage, error)
}

type ServiceParams struct {
	Repo     *Repository
	Products productLoader
}

type service struct {
	repo     *Repository
	products productLoader
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

// Submit records the caller's only review of a product. A second review is a CONFLICT.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ReviewDTO, error) {
	title, comment := reviewTitle(input.Title), strings.TrimSpace(input.Comment)
	if err := validateContent(input.Rating, comment); err != nil {
		return nil, err
	}
	if _, err := s.products.FindProductByID(ctx, input.ProductID); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	exists, err := s.repo.Exists(ctx, input.ProductID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already reviewed this product")
	}
	verified, err := s.repo.HasDeliveredPurchase(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase")
	}

	review := &models.Review{
		ProductID:        input.ProductID,
		UserID:           userID,
		Rating:           input.Rating,
		Title:            title,
		Comment:          comment,
		VerifiedPurchase: verified,
		Approved:         true,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, uniqueReviewConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "you already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return s.reload(ctx, review.ID)
}

func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "load review")
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	rating, title, comment := review.Rating, review.Title, review.Comment
	if input.Rating != nil {
		rating = *input.Rating
	}
	if input.Title != nil {
		title = reviewTitle(*input.Title)
	}
	if input.Comment != nil {
		comment = strings.TrimSpace(*input.Comment)
	}
	if err := validateContent(rating, comment); err != nil {
		return nil, err
	}
	cols := map[string]any{"rating": rating, "title": title, "comment": comment}
	if err := s.repo.Update(ctx, reviewID, cols); err != nil {
		return nil, notFoundOr(err, "review not found", "update review")
	}
	return s.reload(ctx, reviewID)
}

// Delete hides the review. Rows are never removed.
func (s *service) Delete(ctx context.Context, actor auth.Actor, reviewID uuid.UUID) error {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return notFoundOr(err, "review not found", "load review")
	}
	if review.UserID != actor.UserID && !actor.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	if !review.Approved {
		return nil
	}
	if err := s.repo.Update(ctx, reviewID, map[string]any{"approved": false}); err != nil {
		return notFoundOr(err, "review not found", "hide review")
	}
	return nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, sort Sort, limit int) (*ProductReviews, error) {
	if sort == "" {
		sort = SortRecent
	}
	if sort != SortRecent && sort != SortRating {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sort %q", sort)
	}
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	stats, err := s.repo.Stats(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review stats")
	}
	rows, err := s.repo.ListForProduct(ctx, productID, sort, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	out := &ProductReviews{
		Reviews:       make([]ReviewDTO, 0, len(rows)),
		Total:         stats.Total,
		Showing:       len(rows),
		HasMore:       stats.Total > int64(len(rows)),
		AverageRating: math.Round(stats.Average*10) / 10,
	}
	for i := range rows {
		out.Reviews = append(out.Reviews, newReviewDTO(&rows[i]))
	}
	return out, nil
}

// List returns the caller's reviews, or every review for staff.
func (s *service) List(ctx context.Context, actor auth.Actor, params pagination.Params) (*ReviewPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	var owner *uuid.UUID
	if !actor.IsStaff() {
		owner = &actor.UserID
	}
	rows, err := s.repo.List(ctx, owner, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := pagination.Trim(rows, limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := ReviewPage{Items: make([]ReviewDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, newReviewDTO(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "review not found", "reload review")
	}
	dto := newReviewDTO(review)
	return &dto, nil
}

// reviewTitle trims raw, falls back to the default title and cuts it to
// maxTitleLength runes.
func reviewTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleLength]))
	}
	return title
}

func validateContent(rating int, comment string) error {
	details := map[string]string{}
	if rating < 1 || rating > 5 {
		details["rating"] = "must be between 1 and 5"
	}
	if comment == "" {
		details["comment"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(details)
	}
	return nil
}

func notFoundOr(err error, notFound, dependency string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dependency)
}
