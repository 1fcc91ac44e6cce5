package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotOwner      = errors.New("user not authorized")
	ErrUploadFailed  = errors.New("image could not be uploaded")
	ErrDuplicateSlug = errors.New("slug already taken")
)
