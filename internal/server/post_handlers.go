package server

import (
	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed?scope=home|profile&authorId=&cursor=&limit=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	scope, err := service.ParseFeedScope(c.Query("scope"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	authorID, err := parseOptionalID(c, "authorId")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	cursor, limit, err := parsePage(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, err := s.postService.ListFeed(c.UserContext(), service.ListFeedInput{
		ViewerID: viewerID(c),
		Scope:    scope,
		AuthorID: authorID,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"posts":      page.Posts,
		"nextCursor": page.NextCursor,
	})
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		AssetID    uint     `json:"assetId"`
		Caption    *string  `json:"caption"`
		Hashtags   []string `json:"hashtags"`
		Visibility string   `json:"visibility"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		ViewerID:   viewerID(c),
		AssetID:    req.AssetID,
		Caption:    req.Caption,
		Hashtags:   req.Hashtags,
		Visibility: req.Visibility,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// GetPost handles GET /api/posts/:id?cursor=&limit=
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	cursor, limit, err := parsePage(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	detail, err := s.postService.GetPostDetail(c.UserContext(), postID, viewerID(c), cursor, limit)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"post":       detail.Post,
		"comments":   detail.Comments,
		"nextCursor": detail.NextCursor,
	})
}

// UpdatePostVisibility handles PATCH /api/posts/:id/visibility
func (s *Server) UpdatePostVisibility(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Visibility string `json:"visibility"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdateVisibility(c.UserContext(), postID, viewerID(c), req.Visibility)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.LikePost(c.UserContext(), postID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.UnlikePost(c.UserContext(), postID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}
