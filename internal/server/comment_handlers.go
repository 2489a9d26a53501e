package server

import (
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments?cursor=&limit=
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	cursor, limit, err := parsePage(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	page, err := s.commentService.ListComments(c.UserContext(), postID, viewerID(c), cursor, limit)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"comments":   page.Comments,
		"nextCursor": page.NextCursor,
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	result, err := s.commentService.AddComment(c.UserContext(), postID, viewerID(c), req.Message)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"comment":      result.Comment,
		"commentCount": result.CommentCount,
	})
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.DeleteComment(c.UserContext(), commentID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"commentId":    result.CommentID,
		"commentCount": result.CommentCount,
	})
}
