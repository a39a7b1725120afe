package controllers

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
)

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}
