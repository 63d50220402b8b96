package client

import "github.com/example/orderdesk/pkg/models"

func serviceError(op string, status int, msg string, err error) *models.ServiceError {
	return &models.ServiceError{Op: op, StatusCode: status, Message: msg, Err: err}
}
