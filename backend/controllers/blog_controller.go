package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type BlogController struct {
	DB *gorm.DB
}

func NewBlogController(db *gorm.DB) *BlogController {
	return &BlogController{DB: db}
}

type CreatePostRequest struct {
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200"`
	Excerpt   string `json:"excerpt" validate:"max=500"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type UpdatePostRequest struct {
	Title     *string `json:"title" validate:"omitempty,notblank,max=200"`
	Slug      *string `json:"slug" validate:"omitempty,max=200"`
	Excerpt   *string `json:"excerpt" validate:"omitempty,max=500"`
	Body      *string `json:"body"`
	Published *bool   `json:"published"`
}

// Slugify transliterates s to ASCII and joins its words with hyphens.
func Slugify(s string) string {
	return slug.Make(s)
}

// uniqueSlug appends -2, -3, ... until no other post (including deleted ones) holds the slug.
func (bc *BlogController) uniqueSlug(base string, exceptID uint) (string, error) {
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 2; ; n++ {
		var count int64
		q := bc.DB.Unscoped().Model(&models.BlogPost{}).Where("slug = ?", candidate)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func paging(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ListPosts godoc
// @Summary Blog posts
// @Description Published posts, newest first
// @Tags blog
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(10)
// @Success 200 {object} utils.PaginatedResponse
// @Router /blog [get]
func (bc *BlogController) ListPosts(c *fiber.Ctx) error {
	return bc.list(c, bc.DB.Model(&models.BlogPost{}).Where("published = ?", true), "published_at DESC, id DESC")
}

// ListAllPosts godoc
// @Summary All blog posts
// @Description Admin only. Drafts included
// @Tags admin
// @Produce json
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /admin/blog [get]
func (bc *BlogController) ListAllPosts(c *fiber.Ctx) error {
	return bc.list(c, bc.DB.Model(&models.BlogPost{}), "updated_at DESC, id DESC")
}

func (bc *BlogController) list(c *fiber.Ctx, query *gorm.DB, order string) error {
	page, pageSize := paging(c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Failed to count posts")
	}

	var posts []models.BlogPost
	if err := query.Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch posts")
	}

	return utils.Paginate(c, posts, total, page, pageSize)
}

// GetPost godoc
// @Summary Blog post
// @Description A single published post by slug
// @Tags blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /blog/{slug} [get]
func (bc *BlogController) GetPost(c *fiber.Ctx) error {
	var post models.BlogPost
	err := bc.DB.Where("slug = ? AND published = ?", c.Params("slug"), true).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.FromError(c, repository.ErrPostNotFound)
	}
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, post)
}

// CreatePost godoc
// @Summary Create blog post
// @Description Admin only. Slug defaults to the title and is made unique
// @Tags admin
// @Accept json
// @Produce json
// @Param input body CreatePostRequest true "Post"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/blog [post]
func (bc *BlogController) CreatePost(c *fiber.Ctx) error {
	var input CreatePostRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	base := Slugify(input.Slug)
	if base == "" {
		base = Slugify(input.Title)
	}
	postSlug, err := bc.uniqueSlug(base, 0)
	if err != nil {
		return utils.InternalServerError(c, "Failed to create post")
	}

	post := models.BlogPost{
		Title:     strings.TrimSpace(input.Title),
		Slug:      postSlug,
		Excerpt:   input.Excerpt,
		Body:      input.Body,
		Published: input.Published,
		AuthorID:  middleware.CurrentUserID(c),
	}
	if post.Published {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := bc.DB.Create(&post).Error; err != nil {
		return utils.InternalServerError(c, "Failed to create post")
	}
	return utils.Created(c, post)
}

// UpdatePost godoc
// @Summary Update blog post
// @Description Admin only. Publishing stamps published_at the first time
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param input body UpdatePostRequest true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/blog/{id} [put]
func (bc *BlogController) UpdatePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	var input UpdatePostRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var post models.BlogPost
	if err := bc.DB.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FromError(c, repository.ErrPostNotFound)
		}
		return utils.FromError(c, err)
	}

	if input.Title != nil {
		post.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		postSlug, err := bc.uniqueSlug(Slugify(*input.Slug), post.ID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to update post")
		}
		post.Slug = postSlug
	}
	if input.Excerpt != nil {
		post.Excerpt = *input.Excerpt
	}
	if input.Body != nil {
		post.Body = *input.Body
	}
	if input.Published != nil {
		post.Published = *input.Published
		if post.Published && post.PublishedAt == nil {
			now := time.Now()
			post.PublishedAt = &now
		}
	}

	if err := bc.DB.Save(&post).Error; err != nil {
		return utils.InternalServerError(c, "Failed to update post")
	}
	return utils.Success(c, fiber.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete blog post
// @Tags admin
// @Param id path int true "Post ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/blog/{id} [delete]
func (bc *BlogController) DeletePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	res := bc.DB.Delete(&models.BlogPost{}, id)
	if res.Error != nil {
		return utils.InternalServerError(c, "Failed to delete post")
	}
	if res.RowsAffected == 0 {
		return utils.FromError(c, repository.ErrPostNotFound)
	}
	return utils.NoContent(c)
}
