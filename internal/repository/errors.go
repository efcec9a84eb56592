package repository

import "errors"

var (
	// ErrNotFound 记录不存在错误
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSlug slug 已存在
	ErrDuplicateSlug = errors.New("article slug already exists")
)
