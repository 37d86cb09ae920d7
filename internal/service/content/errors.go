package content

import "errors"

var (
	ErrPageNotFound      = errors.New("page not found")
	ErrSlugTaken         = errors.New("slug already taken")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
)
