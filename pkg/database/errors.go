package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes we react to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
	codeQueryCanceled       = "57014"
	classConnection         = "08"
)

// IsUniqueViolation reports a duplicate key error.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// IsForeignKeyViolation reports a dangling reference error.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

// IsDataError reports values rejected by the column type or a CHECK constraint.
func IsDataError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeCheckViolation || pqErr.Code == codeInvalidText || pqErr.Code.Class() == "22"
}

// IsCancelled reports a statement that stopped because its context was
// cancelled or timed out.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pqCode(err) == codeQueryCanceled
}

// IsConnectionLoss reports failures that mean the storage connection itself is gone,
// as opposed to a problem with one statement. Cancellation is not connection loss.
func IsConnectionLoss(err error) bool {
	if err == nil || IsCancelled(err) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code.Class()) == classConnection
	}
	return false
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
